// Package peepgen compiles peephole rewrite rules into generated Go lookup
// tables. Rules and the instruction catalog they refer to are read from a
// TOML or YAML definition file.
package peepgen

import (
	"errors"
	"fmt"

	"github.com/KromDaniel/peepgen/automaton"
	"github.com/KromDaniel/peepgen/internal/compiler"
	"github.com/KromDaniel/peepgen/internal/definition"
)

// Definition is a loaded definition file.
type Definition = definition.Definition

// Options configures the compilation process.
type Options struct {
	// Definition is the path of the TOML or YAML definition file
	Definition string

	// OutputFile is the path where generated code will be written
	OutputFile string

	// Package overrides the package named in the definition file
	Package string

	// Name overrides the identifier prefix named in the definition file (e.g., "Jvm" generates "JvmStep")
	Name string

	// SnapshotFile, when set, receives the table as canonical CBOR
	SnapshotFile string

	// MaxStates bounds the automaton size (0 = automaton.DefaultMaxStates)
	MaxStates int

	// Verbose logs each construction step
	Verbose bool
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	if o.Definition == "" {
		return errors.New("definition file cannot be empty")
	}
	if o.OutputFile == "" {
		return errors.New("output file cannot be empty")
	}
	if o.MaxStates < 0 {
		return fmt.Errorf("max states cannot be negative: %d", o.MaxStates)
	}
	return nil
}

// Load reads a definition file.
func Load(path string) (*Definition, error) {
	return definition.Load(path)
}

// Compile generates Go code for the rules of the definition file.
func Compile(opts Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	def, err := Load(opts.Definition)
	if err != nil {
		return err
	}

	c := compiler.New(config(def, opts))
	c.SetOutputFile(opts.OutputFile)
	if err := c.Generate(); err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	return nil
}

// Build compiles a loaded definition into its automaton without generating
// code.
func Build(def *Definition, maxStates int) (*automaton.Automaton, error) {
	return compiler.New(config(def, Options{MaxStates: maxStates})).Build()
}

func config(def *Definition, opts Options) compiler.Config {
	cfg := compiler.Config{
		Name:         def.Name,
		Package:      def.Package,
		SnapshotFile: opts.SnapshotFile,
		Source:       def.Path,
		Catalog:      def.Catalog,
		Rules:        def.Rules,
		MaxLength:    def.MaxLength,
		AllowOverlap: def.AllowOverlap,
		MaxStates:    opts.MaxStates,
		Verbose:      opts.Verbose,
	}
	if opts.Name != "" {
		cfg.Name = opts.Name
	}
	if opts.Package != "" {
		cfg.Package = opts.Package
	}
	return cfg
}
