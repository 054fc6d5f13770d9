package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"pricetracker/lib/serviceutil"
	"pricetracker/lib/telemetry"
	"pricetracker/services/tracker"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
	verbose    bool

	interval int
	once     bool
	chart    bool
	parallel bool
)

var rootCmd = &cobra.Command{
	Use:   "pricetracker",
	Short: "pricetracker watches product pages and emails you when a price drops to your target.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()
		svc := setup(ctx)
		defer telemetry.Shutdown(context.Background())

		err := svc.LoadConfig(ctx)
		if err != nil {
			serviceutil.Fatal("load product configuration", err)
		}

		if chart {
			svc.RenderCharts(ctx)
		}

		if once {
			printResults(svc.CheckAll(ctx, parallel))
			return
		}

		telemetry.InstrumentPerfStats(ctx)
		svc.Monitor(ctx, time.Duration(interval)*time.Second, parallel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path of the tracked-products file.")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "price_data", "Directory holding price history files and charts.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging/instrumentation.")

	rootCmd.Flags().IntVar(&interval, "interval", 43200, "Seconds between batch checks.")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single batch check and exit.")
	rootCmd.Flags().BoolVar(&chart, "chart", false, "Render a price history chart per product before checking.")
	rootCmd.Flags().BoolVar(&parallel, "parallel", true, "Check products concurrently.")
}

// setup installs logging/telemetry and builds the tracker service,
// shared by the root command and every subcommand.
func setup(ctx context.Context) *tracker.Service {
	telemetry.InitSlog(verbose)

	err := telemetry.SetupFromEnv(ctx, "pricetracker")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}

	fetchOpts := tracker.FetchOptions{}
	if verbose {
		fetchOpts.DebugDumpDir = "output"
	}

	svc, err := tracker.NewService(tracker.Options{
		ConfigPath: configPath,
		DataDir:    dataDir,
		Notifier:   tracker.NewEmailNotifier(tracker.SmtpOptionsFromEnv()),
		Client:     tracker.NewFetchClient(fetchOpts),
	})
	if err != nil {
		serviceutil.Fatal("init tracker service", err)
	}
	return svc
}

func printResults(results map[string]tracker.Result) {
	for name, result := range results {
		if result.Ok() {
			fmt.Printf("%s: $%s\n", name, result.Price)
		} else {
			fmt.Printf("%s: no result (%s)\n", name, result.Err)
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
