package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"eventpulse/internal/config"
	"eventpulse/internal/registry"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check registry health and show status counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				healthErr := store.CheckHealth(cmd.Context())
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					payload := map[string]any{
						"healthy":  healthErr == nil,
						"total":    stats.Total,
						"statuses": stats.ByStatus,
						"registry": store.Path(),
					}
					if healthErr != nil {
						payload["error"] = healthErr.Error()
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				if healthErr != nil {
					fmt.Fprintf(out, "Registry UNHEALTHY: %v\n", healthErr)
				} else {
					fmt.Fprintln(out, "Registry healthy")
				}
				printKV(out, "database", store.Path())

				printer := message.NewPrinter(language.English)
				printKV(out, "total", printer.Sprintf("%d", stats.Total))
				for _, status := range []registry.Status{
					registry.StatusReceived,
					registry.StatusProcessing,
					registry.StatusLoaded,
					registry.StatusFailedQuality,
					registry.StatusFailedDrift,
					registry.StatusFailedException,
					registry.StatusFailedMaxAttempts,
				} {
					if count, ok := stats.ByStatus[status]; ok && count > 0 {
						printKV(out, string(status), printer.Sprintf("%d", count))
					}
				}

				if healthErr != nil {
					return fmt.Errorf("registry unhealthy: %w", healthErr)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}
