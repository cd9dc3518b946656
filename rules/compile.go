package rules

import (
	"errors"
	"fmt"

	"github.com/KromDaniel/peepgen/isa"
)

// DefaultMaxLength bounds the LHS length, and with it the automaton size.
const DefaultMaxLength = 5

// Options configures rule compilation.
type Options struct {
	// MaxLength is the longest accepted LHS. Zero means DefaultMaxLength.
	MaxLength int

	// AllowOverlap skips the cross-rule duplicate and subsumption checks.
	// The automaton builder still rejects simultaneous acceptance.
	AllowOverlap bool
}

// Compile resolves and validates raw rules. Every failure is collected; the
// returned error joins one *Error per problem.
func Compile(raws []Raw, opts Options) (*Set, error) {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var errs []error
	set := &Set{MaxLength: maxLength}

	for i, raw := range raws {
		rule, ruleErrs := compileRule(i, raw, maxLength)
		errs = append(errs, ruleErrs...)
		if rule != nil {
			set.Rules = append(set.Rules, rule)
		}
	}

	if !opts.AllowOverlap {
		errs = append(errs, checkOverlap(set.Rules)...)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set, nil
}

// compileRule resolves one rule. The rule is returned whenever its symbols are
// known, even when other checks fail, so cross-rule checks can still run.
func compileRule(index int, raw Raw, maxLength int) (*Rule, []error) {
	name := raw.Name
	if name == "" {
		name = fmt.Sprintf("rule%d", index)
	}

	rule := &Rule{
		Index:        index,
		Name:         name,
		declarations: make(map[string]Reference),
	}

	var errs []error
	if err := checkSymbols(name, "lhs", raw.LHS); err != nil {
		errs = append(errs, err)
	}
	if err := checkSymbols(name, "rhs", raw.RHS); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	rule.LHS, rule.LHSSize = layout(raw.LHS)
	rule.RHS, rule.RHSSize = layout(raw.RHS)

	if len(rule.LHS) == 0 {
		return nil, []error{newError(ErrEmptyPattern, "", rule)}
	}
	if len(rule.LHS) > maxLength {
		errs = append(errs, newError(ErrPatternTooLong,
			fmt.Sprintf("%d instructions, maximum %d", len(rule.LHS), maxLength), rule))
	}

	for i, p := range raw.LHS {
		if len(p.Operands) != len(p.Symbol.Slots) {
			errs = append(errs, operandCountError(rule, i, p))
			continue
		}
		for j, operand := range p.Operands {
			if operand == "" {
				errs = append(errs, &Error{Err: ErrEmptyBinding, Rules: []*Rule{rule}, Marker: i})
				continue
			}
			if operand == Wildcard {
				continue
			}
			here := Reference{Instruction: i, Slot: j}
			rule.LHS[i].Immediates[j].Binding = operand
			if declared, ok := rule.declarations[operand]; ok {
				ref := declared
				rule.LHS[i].Immediates[j].Constraint = &ref
				rule.constraints = append(rule.constraints, Constraint{
					Binding:  operand,
					Declared: declared,
					Repeated: here,
				})
				continue
			}
			rule.declarations[operand] = here
		}
	}

	for i, p := range raw.RHS {
		if len(p.Operands) != len(p.Symbol.Slots) {
			errs = append(errs, operandCountError(rule, -1, p))
			continue
		}
		for j, operand := range p.Operands {
			if operand == "" {
				errs = append(errs, newError(ErrEmptyBinding, p.Symbol.Name, rule))
				continue
			}
			if operand == Wildcard {
				continue
			}
			if _, ok := rule.declarations[operand]; !ok {
				errs = append(errs, newError(ErrUndeclaredImmediate,
					fmt.Sprintf("%s in %s slot %d", operand, p.Symbol.Name, j), rule))
				continue
			}
			rule.RHS[i].Immediates[j].Binding = operand
		}
	}

	lhsEffect, rhsEffect := stackEffect(rule.LHS), stackEffect(rule.RHS)
	if lhsEffect != rhsEffect {
		errs = append(errs, newError(ErrUnbalancedStack,
			fmt.Sprintf("lhs %+d, rhs %+d", lhsEffect, rhsEffect), rule))
	}

	return rule, errs
}

func checkSymbols(name, side string, patterns []Pattern) error {
	for i, p := range patterns {
		if p.Symbol == nil {
			return fmt.Errorf("%w: rule %q %s instruction %d", ErrUnknownSymbol, name, side, i)
		}
	}
	return nil
}

func operandCountError(rule *Rule, marker int, p Pattern) error {
	return &Error{
		Err:    ErrOperandCount,
		Rules:  []*Rule{rule},
		Marker: marker,
		Detail: fmt.Sprintf("%s has %d slots, got %d operands", p.Symbol.Name, len(p.Symbol.Slots), len(p.Operands)),
	}
}

// layout resolves symbols into instructions with cumulative byte offsets.
func layout(patterns []Pattern) ([]Instruction, int) {
	out := make([]Instruction, len(patterns))
	offset := 0
	for i, p := range patterns {
		out[i] = Instruction{
			Symbol:     p.Symbol,
			Offset:     offset,
			Immediates: make([]Immediate, len(p.Symbol.Slots)),
		}
		for j, slot := range p.Symbol.Slots {
			out[i].Immediates[j].Slot = slot
		}
		offset += p.Symbol.Size()
	}
	return out, offset
}

func stackEffect(insts []Instruction) int {
	total := 0
	for _, inst := range insts {
		total += inst.Symbol.StackEffect
	}
	return total
}

// checkOverlap compares every pair of LHS symbol sequences.
func checkOverlap(rules []*Rule) []error {
	var errs []error
	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			a, b := rules[i].Symbols(), rules[j].Symbols()
			switch {
			case len(a) == len(b) && indexOf(a, b) == 0:
				errs = append(errs, newError(ErrDuplicateRule, "", rules[j], rules[i]))
			case len(a) < len(b) && indexOf(b, a) >= 0:
				errs = append(errs, subsumedError(rules[i], rules[j], indexOf(b, a)))
			case len(b) < len(a) && indexOf(a, b) >= 0:
				errs = append(errs, subsumedError(rules[j], rules[i], indexOf(a, b)))
			}
		}
	}
	return errs
}

func subsumedError(short, long *Rule, at int) error {
	return &Error{
		Err:    ErrSubsumedRule,
		Rules:  []*Rule{long, short},
		Marker: at,
		Detail: fmt.Sprintf("%q occurs inside %q", short.Name, long.Name),
	}
}

// indexOf returns the first position of needle as a contiguous run in
// haystack, or -1.
func indexOf(haystack, needle []*isa.Symbol) int {
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// MustCompile is like Compile but panics on error.
func MustCompile(raws []Raw, opts Options) *Set {
	set, err := Compile(raws, opts)
	if err != nil {
		panic(err)
	}
	return set
}
