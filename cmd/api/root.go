package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd serves the API when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "personal-metrics",
	Short: "Aggregates reading and record collection activity into widget documents.",
	Long: `personal-metrics syncs Goodreads and Discogs activity, enriches it with
book metadata, mirrors cover images to object storage and serves the
resulting widget documents over HTTP.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command and exits non-zero on error. SIGINT and
// SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd, migrateCmd, syncCmd)
}
