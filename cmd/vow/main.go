// Command vow checks source code and prose for signs of AI-generation
// defects: hallucinated packages and APIs, exfiltration and injection
// attempts, and unnatural writing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepsourcelabs/vow/report"
)

// exitCode is set by the command that ran.
var exitCode = report.ExitOK

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vow",
		Short:         "Verify AI-generated code and text before it ships",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "configuration file (TOML or YAML)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("log-json", false, "log JSON events instead of console output")

	root.AddCommand(newCheckCmd(), newRulesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vow:", err)
		// usage errors did not set a code of their own
		if exitCode == report.ExitOK {
			exitCode = report.ExitConfig
		}
	}
	os.Exit(exitCode)
}
