package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eventpulse/internal/api"
	"eventpulse/internal/config"
)

func newReclaimCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Return stale PROCESSING ingestions to RECEIVED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, svc *api.RegistryService) error {
				timeout := olderThan
				if timeout <= 0 {
					timeout = cfg.Workflow.HeartbeatTimeout
				}
				cap := limit
				if cap <= 0 {
					cap = cfg.Workflow.ReclaimMaxPerRun
				}

				cutoff := time.Now().Add(-time.Duration(timeout) * time.Second)
				count, err := svc.Reclaim(cmd.Context(), cutoff, cap, "cli")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d ingestion(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 0, "Heartbeat age threshold in seconds (default: configured heartbeat timeout)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum records per sweep (default: configured reclaim cap)")
	return cmd
}
