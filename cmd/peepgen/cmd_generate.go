package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KromDaniel/peepgen/pkg/peepgen"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var opts peepgen.Options

	cmd := &cobra.Command{
		Use:   "generate <definition>",
		Short: "Generate the Go tables for a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Definition = args[0]
			if opts.OutputFile == "" {
				opts.OutputFile = defaultOutput(args[0])
			}
			opts.Verbose = flagVerbose > 0
			if err := peepgen.Compile(opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", opts.OutputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "output file (default: <definition>_peephole.go)")
	cmd.Flags().StringVar(&opts.Package, "package", "", "override the package name of the definition")
	cmd.Flags().StringVar(&opts.Name, "name", "", "override the identifier prefix of the definition")
	cmd.Flags().StringVar(&opts.SnapshotFile, "snapshot", "", "also write the table as CBOR to this file")
	cmd.Flags().IntVar(&opts.MaxStates, "max-states", 0, "automaton state limit (0 = default)")
	return cmd
}

// defaultOutput derives "dir/jvm_peephole.go" from "dir/jvm.toml".
func defaultOutput(definition string) string {
	base := strings.TrimSuffix(definition, filepath.Ext(definition))
	return base + "_peephole.go"
}
