package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"eventpulse/internal/api"
	"eventpulse/internal/config"
)

func newDatasetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Summarize ingestion activity per dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, svc *api.RegistryService) error {
				views, err := svc.Datasets(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.DatasetListResponse{Datasets: views})
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No datasets ingested yet")
					return nil
				}

				printer := message.NewPrinter(language.English)
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					last := "-"
					if view.LastActivity != nil {
						last = formatTimestamp(*view.LastActivity)
					}
					rows = append(rows, []string{
						view.Dataset,
						printer.Sprintf("%d", view.Total),
						printer.Sprintf("%d", view.Loaded),
						printer.Sprintf("%d", view.Failed),
						printer.Sprintf("%d", view.CuratedRows),
						last,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"DATASET", "INGESTIONS", "LOADED", "FAILED", "CURATED ROWS", "LAST ACTIVITY"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newSchemasCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "schemas <dataset>",
		Short: "Show a dataset's observed schema history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset := args[0]
			return ctx.withService(func(cfg *config.Config, svc *api.RegistryService) error {
				schemas, err := svc.SchemaHistory(cmd.Context(), dataset)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.SchemaHistoryResponse{Dataset: dataset, Schemas: schemas})
				}

				out := cmd.OutOrStdout()
				if len(schemas) == 0 {
					fmt.Fprintf(out, "No schema observations for dataset %s\n", dataset)
					return nil
				}
				for _, view := range schemas {
					fmt.Fprintf(out, "%s  first seen %s, last seen %s\n",
						shortID(view.SchemaHash), formatTimestamp(view.FirstSeenAt), formatTimestamp(view.LastSeenAt))
					fmt.Fprintf(out, "  %s\n", view.Schema)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}
