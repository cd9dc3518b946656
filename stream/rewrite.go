package stream

import (
	"fmt"
)

// RewriteFunc receives every match and the replacement the rule computes.
// Returning false keeps the original instructions.
type RewriteFunc func(m Match, replacement []Instruction) bool

// Rewrite replaces every match in code by the right-hand-side of its rule.
// Non-matching instructions are passed through unchanged. The input is not
// modified.
func (s *Scanner) Rewrite(code []Instruction) ([]Instruction, []Match, error) {
	return s.RewriteWith(code, nil)
}

// RewriteWith is Rewrite with a per-match veto. A nil fn accepts every match.
func (s *Scanner) RewriteWith(code []Instruction, fn RewriteFunc) ([]Instruction, []Match, error) {
	out := make([]Instruction, 0, len(code))
	var applied []Match
	var bindErr error
	next := 0

	err := s.Find(code, func(m Match) bool {
		repl, err := replacement(m)
		if err != nil {
			bindErr = err
			return false
		}
		if fn != nil && !fn(m, repl) {
			return true
		}
		out = append(out, code[next:m.Start]...)
		out = append(out, repl...)
		next = m.End
		applied = append(applied, m)
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	if bindErr != nil {
		return nil, nil, bindErr
	}
	out = append(out, code[next:]...)
	return out, applied, nil
}

// replacement builds the RHS instructions of a match.
func replacement(m Match) ([]Instruction, error) {
	imms, err := m.Rule.Bind(m.Values)
	if err != nil {
		return nil, fmt.Errorf("rewrite %q at %d: %w", m.Rule.Name, m.Start, err)
	}
	out := make([]Instruction, len(m.Rule.RHS))
	for i, inst := range m.Rule.RHS {
		out[i] = Instruction{Symbol: inst.Symbol, Immediates: imms[i]}
	}
	return out, nil
}

// DefaultRounds bounds Fixpoint when no limit is given.
const DefaultRounds = 16

// Fixpoint applies Rewrite until no rule matches or rounds passes have run.
// It returns the final code and the number of applied rewrites.
func (s *Scanner) Fixpoint(code []Instruction, rounds int) ([]Instruction, int, error) {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	total := 0
	for round := 0; round < rounds; round++ {
		next, applied, err := s.Rewrite(code)
		if err != nil {
			return nil, total, err
		}
		if len(applied) == 0 {
			return code, total, nil
		}
		total += len(applied)
		code = next
	}
	return code, total, nil
}
