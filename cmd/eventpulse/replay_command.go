package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventpulse/internal/api"
	"eventpulse/internal/config"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <ingestion-id>...",
		Short: "Create fresh ingestions reprocessing prior raw artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, svc *api.RegistryService) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					view, err := svc.Replay(cmd.Context(), id, "cli")
					if err != nil {
						return fmt.Errorf("replay %s: %w", id, err)
					}
					fmt.Fprintf(out, "Replay of %s created as %s\n", id, view.ID)
				}
				return nil
			})
		},
	}
}
