package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deepsourcelabs/vow/config"
	"github.com/deepsourcelabs/vow/pipeline"
	"github.com/deepsourcelabs/vow/report"
	"github.com/deepsourcelabs/vow/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule sets",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the active rules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				table, err := loadTable(cmd)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tANALYZER\tSEVERITY\tSET\tNAME")
				for _, r := range table.Rules() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Analyzer, r.Severity, r.Set, r.Name)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "describe ID",
			Short: "Print a rule's description as sanitized HTML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				table, err := loadTable(cmd)
				if err != nil {
					return err
				}

				r, ok := table.Lookup(args[0])
				if !ok {
					return fmt.Errorf("no active rule %q", args[0])
				}
				html, err := r.Describe()
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), html)
				return err
			},
		},
		&cobra.Command{
			Use:   "export [dir]",
			Short: "Write the built-in rule sets as TOML, one file per set",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sets, err := rules.Builtin()
				if err != nil {
					exitCode = report.ExitRule
					return err
				}

				if len(args) == 0 {
					for i, set := range sets {
						if i > 0 {
							fmt.Fprintln(cmd.OutOrStdout())
						}
						fmt.Fprintf(cmd.OutOrStdout(), "# %s.toml\n", set.Name)
						if err := rules.EncodeRuleSet(cmd.OutOrStdout(), set); err != nil {
							return err
						}
					}
					return nil
				}
				return exportSets(args[0], sets)
			},
		},
	)

	return cmd
}

// exportSets writes every set to dir/<name>.toml.
func exportSets(dir string, sets []rules.RuleSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		exitCode = report.ExitFileIO
		return err
	}

	for _, set := range sets {
		f, err := os.Create(filepath.Join(dir, set.Name+".toml"))
		if err != nil {
			exitCode = report.ExitFileIO
			return err
		}
		if err := rules.EncodeRuleSet(f, set); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			exitCode = report.ExitFileIO
			return err
		}
	}

	return nil
}

// loadTable compiles the rules the configuration selects.
func loadTable(cmd *cobra.Command) (*rules.Table, error) {
	configPath, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(configPath)
	if err != nil {
		exitCode = report.ExitConfig
		return nil, err
	}

	table, err := pipeline.Prepare(settings.Core)
	if err != nil {
		exitCode = report.ExitRule
		return nil, err
	}
	return table, nil
}
