package cmd

import (
	"context"
	"log/slog"

	"pricetracker/lib/serviceutil"
	"pricetracker/lib/telemetry"
	"pricetracker/services/tracker"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	addUrl      string
	addName     string
	addTarget   string
	addSelector string
)

func init() {
	addCmd.Flags().StringVar(&addUrl, "url", "", "Product page url.")
	addCmd.Flags().StringVar(&addName, "name", "", "Product name, the unique key.")
	addCmd.Flags().StringVar(&addTarget, "target", "", "Target price, alert at or below it.")
	addCmd.Flags().StringVar(&addSelector, "selector", tracker.DefaultSelector, "CSS selector locating the price on the page.")
	addCmd.MarkFlagRequired("url")
	addCmd.MarkFlagRequired("name")
	addCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Starts tracking a new product and checks its price immediately.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := setup(ctx)
		defer telemetry.Shutdown(context.Background())

		target, err := decimal.NewFromString(addTarget)
		if err != nil {
			serviceutil.Fatal("parse target price", err)
		}

		err = svc.LoadConfig(ctx)
		if err != nil {
			serviceutil.Fatal("load product configuration", err)
		}

		tracked, err := svc.AddProduct(ctx, tracker.Product{
			Url:         addUrl,
			Name:        addName,
			TargetPrice: target,
			Selector:    addSelector,
		})
		if err != nil {
			serviceutil.Fatal("add product", err)
		}
		slog.InfoContext(ctx, "product added", "name", addName, "target", target)

		price, err := tracked.CheckPrice(ctx)
		if err != nil {
			slog.WarnContext(ctx, "initial price check failed", "name", addName, "err", err)
			return
		}
		slog.InfoContext(ctx, "initial price recorded", "name", addName, "price", price)
	},
}
