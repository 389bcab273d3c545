package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventpulse/internal/api"
	"eventpulse/internal/config"
)

// statusGroups maps the friendly filter names to concrete registry statuses.
var statusGroups = map[string][]string{
	"received":   {"RECEIVED"},
	"processing": {"PROCESSING"},
	"success":    {"LOADED"},
	"failed":     {"FAILED_QUALITY", "FAILED_DRIFT", "FAILED_EXCEPTION", "FAILED_MAX_ATTEMPTS"},
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		dataset    string
		status     string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingestions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, svc *api.RegistryService) error {
				statuses := []string{""}
				if status != "" {
					if group, ok := statusGroups[status]; ok {
						statuses = group
					} else {
						statuses = []string{status}
					}
				}

				var views []api.IngestionView
				for _, s := range statuses {
					batch, err := svc.List(cmd.Context(), dataset, s, limit)
					if err != nil {
						return err
					}
					views = append(views, batch...)
				}

				if jsonOutput {
					return writeJSON(cmd, api.IngestionListResponse{Ingestions: views})
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No ingestions found")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					rows = append(rows, []string{
						shortID(view.ID),
						view.Dataset,
						colorizeStatus(view.Status, colorize),
						fmt.Sprintf("%d", view.Attempts),
						formatTimestamp(view.CreatedAt),
						truncate(view.Error, 48),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "DATASET", "STATUS", "ATTEMPTS", "CREATED", "ERROR"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Filter by dataset")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status or group (received|processing|success|failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum records per status filter")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}
