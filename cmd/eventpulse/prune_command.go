package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eventpulse/internal/config"
	"eventpulse/internal/registry"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThanDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete terminal ingestion records older than a retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThanDays <= 0 {
				return fmt.Errorf("--older-than-days must be positive")
			}
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
				count, err := store.PruneTerminal(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d terminal ingestion(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than-days", 30, "Only prune records last updated more than this many days ago")
	return cmd
}
