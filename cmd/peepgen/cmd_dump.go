package main

import (
	"github.com/KromDaniel/peepgen/pkg/peepgen"
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <definition>",
		Short: "Print every automaton state with its markers and transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := peepgen.Load(args[0])
			if err != nil {
				return err
			}
			auto, err := peepgen.Build(def, 0)
			if err != nil {
				return err
			}
			return auto.Dump(cmd.OutOrStdout())
		},
	}
}
