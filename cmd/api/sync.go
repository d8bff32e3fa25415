package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"personal-metrics-service/internal/app/service"
	"personal-metrics-service/internal/transport/httpserver/dto"
)

var errSyncFailed = errors.New("sync failed")

var syncCmd = &cobra.Command{
	Use:   "sync [provider]",
	Short: "Run one sync now and print its envelope",
	Long: `Runs the named provider's sync once, or every provider when no name is
given, and prints the result as JSON. Exits non-zero when a run fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, err := newBase(ctx)
		if err != nil {
			return err
		}
		defer b.close()

		svc, err := newServices(ctx, b)
		if err != nil {
			return err
		}
		defer svc.close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(args) == 0 {
			resp := dto.FromProviderResults(svc.syncs.SyncAll(ctx))
			if err := enc.Encode(resp); err != nil {
				return err
			}
			if resp.Summary.ProvidersFail > 0 {
				return fmt.Errorf("%w: %d of %d providers", errSyncFailed,
					resp.Summary.ProvidersFail, len(resp.Results))
			}
			return nil
		}

		result, run, err := svc.syncs.Sync(ctx, args[0])
		pr := service.ProviderResult{Provider: args[0], Result: result, Run: run, Err: err}
		if err := enc.Encode(dto.FromProviderResults([]service.ProviderResult{pr}).Results[0]); err != nil {
			return err
		}
		if pr.Failed() {
			return fmt.Errorf("%w: %s", errSyncFailed, args[0])
		}
		return nil
	},
}
