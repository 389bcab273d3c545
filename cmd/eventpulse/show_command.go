package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventpulse/internal/api"
	"eventpulse/internal/config"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput  bool
		showReport  bool
		showLineage bool
	)

	cmd := &cobra.Command{
		Use:   "show <ingestion-id>",
		Short: "Show one ingestion with its report, lineage, and audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return ctx.withService(func(cfg *config.Config, svc *api.RegistryService) error {
				view, err := svc.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if view == nil {
					return fmt.Errorf("ingestion %s not found", id)
				}

				report, err := svc.QualityReport(cmd.Context(), id)
				if err != nil {
					return err
				}
				lineage, err := svc.Lineage(cmd.Context(), id)
				if err != nil {
					return err
				}
				events, err := svc.Events(cmd.Context(), id)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"ingestion": view,
						"report":    report,
						"lineage":   lineage,
						"events":    events,
					})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintf(out, "Ingestion %s\n", view.ID)
				printKV(out, "dataset", view.Dataset)
				printKV(out, "status", colorizeStatus(view.Status, colorize))
				printKV(out, "source", view.Source)
				printKV(out, "filename", view.Filename)
				printKV(out, "sha256", view.SHA256)
				printKV(out, "attempts", fmt.Sprintf("%d", view.Attempts))
				printKV(out, "created", formatTimestamp(view.CreatedAt))
				if view.ProcessedAt != nil {
					printKV(out, "processed", formatTimestamp(*view.ProcessedAt))
				}
				if view.ReplayOf != "" {
					printKV(out, "replay of", view.ReplayOf)
				}
				if view.Error != "" {
					printKV(out, "error", view.Error)
				}

				if report != nil {
					fmt.Fprintf(out, "\nQuality report (ok=%v):\n", report.OK)
					if showReport {
						fmt.Fprintln(out, report.Report)
					} else {
						fmt.Fprintln(out, "  use --report for the full document")
					}
				}
				if lineage != nil && showLineage {
					fmt.Fprintln(out, "\nLineage artifact:")
					fmt.Fprintln(out, lineage.Artifact)
				}

				if len(events) > 0 {
					fmt.Fprintln(out, "\nAudit trail:")
					for _, event := range events {
						fmt.Fprintf(out, "  %s  %-32s %s\n",
							formatTimestamp(event.CreatedAt), event.EventType, event.Details)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&showReport, "report", false, "Print the full quality report document")
	cmd.Flags().BoolVar(&showLineage, "lineage", false, "Print the lineage artifact document")
	return cmd
}
