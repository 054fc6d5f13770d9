package cmd

import (
	"context"
	"log/slog"

	"pricetracker/lib/serviceutil"
	"pricetracker/lib/telemetry"

	"github.com/spf13/cobra"
)

var removeName string

func init() {
	removeCmd.Flags().StringVar(&removeName, "name", "", "Name of the product to stop tracking.")
	removeCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Stops tracking a product. Its recorded history stays on disk.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := setup(ctx)
		defer telemetry.Shutdown(context.Background())

		err := svc.LoadConfig(ctx)
		if err != nil {
			serviceutil.Fatal("load product configuration", err)
		}

		err = svc.RemoveProduct(ctx, removeName)
		if err != nil {
			serviceutil.Fatal("remove product", err)
		}
		slog.InfoContext(ctx, "product removed", "name", removeName)
	},
}
