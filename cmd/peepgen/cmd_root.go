package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName + " <command> <definition>",
		Short: "Peephole rule compiler",
		Long: "Compile peephole rewrite rules, declared in a TOML or YAML definition file,\n" +
			"into a deterministic automaton and generated Go lookup tables.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},
	}
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "log construction steps (repeatable)")

	rootCmd.AddCommand(newGenerateCmd(), newCheckCmd(), newDumpCmd())
	return rootCmd
}
