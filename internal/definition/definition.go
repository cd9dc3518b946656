// Package definition loads instruction catalogs and rewrite rules from TOML
// or YAML definition files.
package definition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KromDaniel/peepgen/internal/pattern"
	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

// Defaults applied to fields a definition file leaves empty.
const (
	DefaultPackage = "peephole"
	DefaultName    = "Peephole"
)

// ErrUnknownFormat is returned for files that are neither TOML nor YAML.
var ErrUnknownFormat = errors.New("unknown definition format")

// Definition is a loaded definition file.
type Definition struct {
	// Package is the Go package of generated code.
	Package string
	// Name prefixes every generated identifier.
	Name string
	// MaxLength bounds rule LHS length.
	MaxLength int
	// AllowOverlap skips the subsumption check.
	AllowOverlap bool

	Catalog *isa.Catalog
	Rules   []rules.Raw

	// Path is the file the definition was read from (set at load time).
	Path string
}

// file mirrors the on-disk layout shared by both formats.
type file struct {
	Package      string        `toml:"package" yaml:"package"`
	Name         string        `toml:"name" yaml:"name"`
	MaxLength    int           `toml:"max_length" yaml:"max_length"`
	AllowOverlap bool          `toml:"allow_overlap" yaml:"allow_overlap"`
	Instructions []instruction `toml:"instruction" yaml:"instructions"`
	Rules        []rule        `toml:"rule" yaml:"rules"`
}

type instruction struct {
	Name       string   `toml:"name" yaml:"name"`
	Stack      int      `toml:"stack" yaml:"stack"`
	Immediates []string `toml:"immediates" yaml:"immediates"`
}

type rule struct {
	Name    string `toml:"name" yaml:"name"`
	Match   string `toml:"match" yaml:"match"`
	Rewrite string `toml:"rewrite" yaml:"rewrite"`
}

// Load reads a definition file. The format follows the extension: .toml,
// .yaml or .yml.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		def, err = ParseTOML(data)
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.Path = path
	return def, nil
}

// build turns the decoded file into a Definition. Every instruction and rule
// error is reported, not only the first.
func build(f file) (*Definition, error) {
	def := &Definition{
		Package:      f.Package,
		Name:         f.Name,
		MaxLength:    f.MaxLength,
		AllowOverlap: f.AllowOverlap,
		Catalog:      isa.NewCatalog(),
	}

	// Defaults
	if def.Package == "" {
		def.Package = DefaultPackage
	}
	if def.Name == "" {
		def.Name = DefaultName
	}
	if def.MaxLength == 0 {
		def.MaxLength = rules.DefaultMaxLength
	}
	if def.MaxLength < 0 {
		return nil, fmt.Errorf("phase=validate path=max_length: must be positive, got %d", def.MaxLength)
	}

	var errs []error
	for i, in := range f.Instructions {
		if err := define(def.Catalog, in); err != nil {
			errs = append(errs, fmt.Errorf("phase=catalog path=instruction[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for i, r := range f.Rules {
		raw, err := pattern.ParseRule(def.Catalog, r.Name, r.Match, r.Rewrite)
		if err != nil {
			errs = append(errs, fmt.Errorf("phase=rules path=rule[%d]: %w", i, err))
			continue
		}
		def.Rules = append(def.Rules, raw)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return def, nil
}

func define(cat *isa.Catalog, in instruction) error {
	kinds := make([]isa.SlotKind, len(in.Immediates))
	for j, name := range in.Immediates {
		k, err := isa.ParseSlotKind(name)
		if err != nil {
			return fmt.Errorf("%s immediate %d: %w", in.Name, j, err)
		}
		kinds[j] = k
	}
	_, err := cat.Define(in.Name, in.Stack, kinds...)
	return err
}

// RuleSet compiles the rules with the definition's options.
func (d *Definition) RuleSet() (*rules.Set, error) {
	return rules.Compile(d.Rules, rules.Options{
		MaxLength:    d.MaxLength,
		AllowOverlap: d.AllowOverlap,
	})
}
