package cmd

import (
	"context"
	"os"

	"pricetracker/lib/pricestore"
	"pricetracker/lib/serviceutil"
	"pricetracker/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the tracked products with their targets and latest recorded prices.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := setup(ctx)
		defer telemetry.Shutdown(context.Background())

		err := svc.LoadConfig(ctx)
		if err != nil {
			serviceutil.Fatal("load product configuration", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Target", "Latest", "Checked", "Url"})

		for _, status := range svc.Statuses() {
			latest := "-"
			checked := "-"
			if status.HasLatest {
				latest = "$" + status.Latest.Price.String()
				checked = status.Latest.Time.Format(pricestore.TimeFormat)
			}
			t.AppendRow(table.Row{
				status.Product.Name,
				"$" + status.Product.TargetPrice.String(),
				latest,
				checked,
				status.Product.Url,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
