// Package compiler turns a peephole rule set into generated Go tables.
package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"

	"github.com/KromDaniel/peepgen/automaton"
	"github.com/KromDaniel/peepgen/internal/codegen"
	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
	"github.com/dave/jennifer/jen"
)

// Config holds the configuration for code generation.
type Config struct {
	Name         string       // Prefix of every generated identifier
	Package      string       // Package of the generated file
	OutputFile   string       // Path of the generated Go file
	SnapshotFile string       // Optional path of a CBOR table snapshot
	Source       string       // Origin shown in the generated header
	Catalog      *isa.Catalog // Instruction catalog the rules refer to
	Rules        []rules.Raw  // Rules to compile
	MaxLength    int          // Longest allowed LHS (0 = rules.DefaultMaxLength)
	AllowOverlap bool         // Skip the subsumption check
	MaxStates    int          // Max DFA states (0 = automaton.DefaultMaxStates)
	Verbose      bool         // Enable verbose logging of construction steps
}

// Errors reported by Validate.
var (
	ErrNoCatalog      = errors.New("no instruction catalog")
	ErrInvalidName    = errors.New("name is not a Go identifier")
	ErrInvalidPackage = errors.New("package is not a Go identifier")
	ErrTooManyOpcodes = errors.New("catalog does not fit one-byte opcodes")
)

// Validate checks the parts of the configuration the generated file depends on.
func (c Config) Validate() error {
	if c.Catalog == nil {
		return ErrNoCatalog
	}
	if !codegen.IsIdentifier(c.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, c.Name)
	}
	if !codegen.IsIdentifier(c.Package) {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, c.Package)
	}
	if c.Catalog.Len() > 256 {
		return fmt.Errorf("%w: %d symbols", ErrTooManyOpcodes, c.Catalog.Len())
	}
	return nil
}

// Compiler generates lookup tables from a rule set.
type Compiler struct {
	config Config
	file   *jen.File
	logger *Logger

	set     *rules.Set
	auto    *automaton.Automaton
	table   *automaton.Table
	emitted bool
}

// New creates a new compiler instance.
func New(config Config) *Compiler {
	return &Compiler{
		config: config,
		file:   jen.NewFile(config.Package),
		logger: NewLogger(config.Verbose),
	}
}

// SetOutputFile sets the output file path.
func (c *Compiler) SetOutputFile(path string) {
	c.config.OutputFile = path
}

// Build compiles the rules and determinizes them. The result is cached.
func (c *Compiler) Build() (*automaton.Automaton, error) {
	if c.auto != nil {
		return c.auto, nil
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	c.logger.Section("Rules")
	set, err := rules.Compile(c.config.Rules, rules.Options{
		MaxLength:    c.config.MaxLength,
		AllowOverlap: c.config.AllowOverlap,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range set.Rules {
		c.logger.Log("%s (%d bytes -> %d bytes)", r, r.LHSSize, r.RHSSize)
	}

	c.logger.Section("Automaton")
	auto, err := automaton.Build(set, c.config.Catalog.Compare, automaton.Options{MaxStates: c.config.MaxStates})
	if err != nil {
		return nil, err
	}
	c.logger.Log("DFA states: %d", auto.Len())
	c.logger.Log("Alphabet: %d of %d symbols", len(auto.Alphabet()), c.config.Catalog.Len())

	c.set, c.auto, c.table = set, auto, auto.Table()
	c.logger.Log("Fingerprint: %#016x", c.table.Fingerprint())
	return auto, nil
}

// Table returns the flattened automaton, building it if needed.
func (c *Compiler) Table() (*automaton.Table, error) {
	if _, err := c.Build(); err != nil {
		return nil, err
	}
	return c.table, nil
}

// Source renders the generated file in memory, gofmt-ed.
func (c *Compiler) Source() ([]byte, error) {
	if err := c.prepare(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.file.Render(&buf); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

// Generate generates the Go code and writes it to the output file. When a
// snapshot file is configured the table is written there too.
func (c *Compiler) Generate() error {
	if err := c.prepare(); err != nil {
		return err
	}

	c.logger.Section("Output")
	// Save to file
	if err := c.file.Save(c.config.OutputFile); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := formatFile(c.config.OutputFile); err != nil {
		return fmt.Errorf("failed to format file: %w", err)
	}
	c.logger.Log("Wrote %s", c.config.OutputFile)

	if c.config.SnapshotFile != "" {
		if err := c.WriteSnapshot(c.config.SnapshotFile); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot writes the table as canonical CBOR.
func (c *Compiler) WriteSnapshot(path string) error {
	table, err := c.Table()
	if err != nil {
		return err
	}
	data, err := table.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, OutputFileMode); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	c.logger.Log("Wrote snapshot %s (%d bytes)", path, len(data))
	return nil
}

// prepare builds the automaton and emits the jen file once.
func (c *Compiler) prepare() error {
	if _, err := c.Build(); err != nil {
		return err
	}
	if !c.emitted {
		c.emit()
		c.emitted = true
	}
	return nil
}

// formatFile formats a Go source file using gofmt.
func formatFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	formatted, err := format.Source(src)
	if err != nil {
		return err
	}

	return os.WriteFile(path, formatted, OutputFileMode)
}
