package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventpulse/internal/config"
	"eventpulse/internal/ingest"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "submit <dataset> <file>...",
		Short: "Submit files for ingestion",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset := args[0]
			files := args[1:]

			return ctx.withSubmitter(func(cfg *config.Config, submitter *ingest.Submitter) error {
				out := cmd.OutOrStdout()
				for _, file := range files {
					record, err := submitter.Submit(cmd.Context(), dataset, source, file)
					if err != nil {
						return fmt.Errorf("submit %s: %w", file, err)
					}
					fmt.Fprintf(out, "Submitted %s as ingestion %s (dataset %s)\n", file, record.ID, record.Dataset)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "cli", "Provenance label recorded on the ingestion")
	return cmd
}
