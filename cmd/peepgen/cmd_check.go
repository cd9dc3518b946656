package main

import (
	"fmt"

	"github.com/KromDaniel/peepgen/pkg/peepgen"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <definition>",
		Short: "Validate a definition file and report the automaton size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := peepgen.Analyze(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules, %d states (%d settled), %d symbols, fingerprint %#016x\n",
				result.Name, result.Rules, result.States, result.Settled, result.Alphabet, result.Fingerprint)
			return nil
		},
	}
}
