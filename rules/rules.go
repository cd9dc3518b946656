// Package rules compiles declarative peephole rewrite rules.
//
// A rule replaces a short instruction sequence (the LHS) with another (the
// RHS). Immediate operands are correlated through binding names: the first
// occurrence of a name on the LHS declares it, later LHS occurrences
// constrain the runtime value to be equal, and RHS occurrences copy it.
package rules

import (
	"fmt"
	"strings"

	"github.com/KromDaniel/peepgen/isa"
)

// Wildcard matches any immediate value without binding it.
const Wildcard = "_"

// Pattern is one instruction of a raw rule: a symbol plus a binding name or
// Wildcard for each of its immediate slots.
type Pattern struct {
	Symbol   *isa.Symbol
	Operands []string
}

// P builds a Pattern.
func P(sym *isa.Symbol, operands ...string) Pattern {
	return Pattern{Symbol: sym, Operands: operands}
}

// Raw is an unresolved rewrite rule as supplied by the rule author.
type Raw struct {
	Name string
	LHS  []Pattern
	RHS  []Pattern
}

// Reference locates an immediate on the LHS.
type Reference struct {
	Instruction int
	Slot        int
}

func (r Reference) String() string {
	return fmt.Sprintf("%d.%d", r.Instruction, r.Slot)
}

// Immediate is a resolved immediate operand. Binding is empty for wildcards.
// Constraint, when set, points at the earlier LHS occurrence this value must equal.
type Immediate struct {
	Slot       isa.Slot
	Binding    string
	Constraint *Reference
}

// Wildcard reports whether the immediate is unbound.
func (im Immediate) Wildcard() bool {
	return im.Binding == ""
}

// Instruction is a resolved pattern instruction with its byte offset inside
// the LHS or RHS sequence.
type Instruction struct {
	Symbol     *isa.Symbol
	Immediates []Immediate
	Offset     int
}

// Constraint requires the runtime value at Repeated to equal the one at Declared.
type Constraint struct {
	Binding  string
	Declared Reference
	Repeated Reference
}

// Rule is a compiled rewrite rule.
type Rule struct {
	Index   int
	Name    string
	LHS     []Instruction
	RHS     []Instruction
	LHSSize int
	RHSSize int

	declarations map[string]Reference
	constraints  []Constraint
}

// Len returns the number of LHS instructions.
func (r *Rule) Len() int {
	return len(r.LHS)
}

// Symbols returns the LHS symbol sequence.
func (r *Rule) Symbols() []*isa.Symbol {
	syms := make([]*isa.Symbol, len(r.LHS))
	for i, inst := range r.LHS {
		syms[i] = inst.Symbol
	}
	return syms
}

// Unconditional reports whether the rule has no repeated bindings, so a
// symbol-level match is already a full match.
func (r *Rule) Unconditional() bool {
	return len(r.constraints) == 0
}

// Constraints returns the equality checks the caller must verify against
// runtime immediate values before rewriting.
func (r *Rule) Constraints() []Constraint {
	out := make([]Constraint, len(r.constraints))
	copy(out, r.constraints)
	return out
}

// Declaration returns where a binding was first declared.
func (r *Rule) Declaration(binding string) (Reference, bool) {
	ref, ok := r.declarations[binding]
	return ref, ok
}

// Satisfied reports whether the observed immediate values meet every
// constraint. values[i] holds the immediates of the i-th matched instruction.
func (r *Rule) Satisfied(values [][]int64) bool {
	for _, c := range r.constraints {
		declared, ok := lookup(values, c.Declared)
		if !ok {
			return false
		}
		repeated, ok := lookup(values, c.Repeated)
		if !ok || declared != repeated {
			return false
		}
	}
	return true
}

// Bind computes the RHS immediates from the matched LHS values. Wildcard RHS
// slots are zero.
func (r *Rule) Bind(values [][]int64) ([][]int64, error) {
	out := make([][]int64, len(r.RHS))
	for i, inst := range r.RHS {
		out[i] = make([]int64, len(inst.Immediates))
		for j, im := range inst.Immediates {
			if im.Wildcard() {
				continue
			}
			ref := r.declarations[im.Binding]
			v, ok := lookup(values, ref)
			if !ok {
				return nil, fmt.Errorf("binding %s at %s: no value observed", im.Binding, ref)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func lookup(values [][]int64, ref Reference) (int64, bool) {
	if ref.Instruction >= len(values) || ref.Slot >= len(values[ref.Instruction]) {
		return 0, false
	}
	return values[ref.Instruction][ref.Slot], true
}

// Format prints the rule as its symbol sequences. When marker is within
// [0, Len()] a '.' is placed before the LHS instruction at that position.
func (r *Rule) Format(marker int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "rule %q [", r.Name)
	for i, inst := range r.LHS {
		if i == marker {
			b.WriteString(". ")
		}
		b.WriteString(inst.Symbol.Name)
		if i < len(r.LHS)-1 {
			b.WriteString(" ")
		}
	}
	if marker == len(r.LHS) {
		if len(r.LHS) > 0 {
			b.WriteString(" ")
		}
		b.WriteString(".")
	}
	b.WriteString("] -> [")
	for i, inst := range r.RHS {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(inst.Symbol.Name)
	}
	b.WriteString("]")
	return b.String()
}

func (r *Rule) String() string {
	return r.Format(-1)
}

// Set is a validated, immutable rule list.
type Set struct {
	Rules     []*Rule
	MaxLength int
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.Rules)
}

// Lookup returns the rule with the given name.
func (s *Set) Lookup(name string) (*Rule, bool) {
	for _, r := range s.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}
