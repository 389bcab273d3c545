package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"eventpulse/internal/contract"
)

func newContractCommand(ctx *commandContext) *cobra.Command {
	contractCmd := &cobra.Command{
		Use:   "contract",
		Short: "Dataset contract utilities",
	}
	contractCmd.AddCommand(newContractValidateCommand(ctx))
	contractCmd.AddCommand(newContractShowCommand(ctx))
	return contractCmd
}

func newContractValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dataset>...",
		Short: "Validate dataset contracts in the contracts directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var failed bool
			for _, dataset := range args {
				loaded, err := contract.Load(cfg.Paths.ContractsDir, dataset)
				if err != nil {
					failed = true
					fmt.Fprintf(out, "%s: INVALID: %v\n", dataset, err)
					continue
				}
				fmt.Fprintf(out, "%s: valid (%d columns, fingerprint %s)\n",
					dataset, len(loaded.Contract.Columns), shortID(loaded.SHA256))
			}
			if failed {
				return fmt.Errorf("one or more contracts failed validation")
			}
			return nil
		},
	}
}

func newContractShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <dataset>",
		Short: "Show a dataset contract's effective rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loaded, err := contract.Load(cfg.Paths.ContractsDir, args[0])
			if err != nil {
				return err
			}
			c := loaded.Contract

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Contract %s (%s)\n", c.Dataset, loaded.Path)
			printKV(out, "fingerprint", loaded.SHA256)
			if c.Description != "" {
				printKV(out, "description", c.Description)
			}
			if c.PrimaryKey != "" {
				printKV(out, "primary key", c.PrimaryKey)
			} else {
				printKV(out, "primary key", "(none; loads append-only)")
			}
			printKV(out, "drift policy", c.DriftPolicyOrDefault(cfg.Ingest.DriftPolicyDefault))

			rows := make([][]string, 0, len(c.Columns))
			for _, name := range c.ColumnNames() {
				col := c.Columns[name]
				rules := make([]string, 0, 4)
				if col.Required {
					rules = append(rules, "required")
				}
				if col.Unique {
					rules = append(rules, "unique")
				}
				if col.Min != nil {
					rules = append(rules, fmt.Sprintf("min=%v", *col.Min))
				}
				if col.Max != nil {
					rules = append(rules, fmt.Sprintf("max=%v", *col.Max))
				}
				if threshold, ok := c.MaxNullFraction[name]; ok {
					rules = append(rules, fmt.Sprintf("max_null=%v", threshold))
				}
				rows = append(rows, []string{name, col.Type, joinRules(rules)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"COLUMN", "TYPE", "RULES"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func joinRules(rules []string) string {
	if len(rules) == 0 {
		return "-"
	}
	sort.Strings(rules)
	result := rules[0]
	for _, rule := range rules[1:] {
		result += ", " + rule
	}
	return result
}
