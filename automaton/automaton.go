// Package automaton compiles a validated rule set into a deterministic
// automaton that recognizes rule left-hand-sides in an instruction stream.
//
// Construction goes through a nondeterministic automaton with one linear
// chain per rule and epsilon edges back to the start state, which is then
// determinized by subset construction. The result is immutable; any number of
// goroutines may traverse it concurrently.
//
// The automaton tracks symbol identity only. When a state accepts a rule the
// caller must still check the rule's immediate constraints against the
// values it observed (see rules.Rule.Satisfied) before treating the
// acceptance as a match.
package automaton

import (
	"fmt"
	"io"
	"sort"

	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

// State is a deterministic automaton state. Its identity is the set of
// progress markers it carries.
type State struct {
	node[*State]
	markers []Marker
	accepts *rules.Rule
	restart bool
}

// ID returns the state number. The start state is 0.
func (s *State) ID() int {
	return s.id
}

// Markers returns the progress markers of the state, ordered by rule.
func (s *State) Markers() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Accepts returns the rule whose LHS is complete in this state, or nil.
func (s *State) Accepts() *rules.Rule {
	return s.accepts
}

// Next returns the successor on sym. false means the caller should reset to
// the start state and retry sym there.
func (s *State) Next(sym *isa.Symbol) (*State, bool) {
	next, ok := s.edges[sym]
	return next, ok
}

// Restartable reports whether the state also represents a fresh match
// beginning at the next instruction. Only states settled by an
// unconditional rule are not.
func (s *State) Restartable() bool {
	return s.restart
}

// Terminal reports whether the state has no outgoing transitions.
func (s *State) Terminal() bool {
	return len(s.edges) == 0
}

// Transition is one outgoing edge of a state.
type Transition struct {
	Symbol *isa.Symbol
	Target *State
}

// Automaton is the immutable lookup structure consumed by code generators.
type Automaton struct {
	set       *rules.Set
	order     isa.Order
	start     *State
	states    []*State
	accepting map[*rules.Rule]*State
	alphabet  []*isa.Symbol
}

func newAutomaton(set *rules.Set, order isa.Order, states []*State) *Automaton {
	a := &Automaton{
		set:       set,
		order:     order,
		start:     states[0],
		states:    states,
		accepting: make(map[*rules.Rule]*State),
	}

	seen := make(map[*isa.Symbol]bool)
	for _, s := range states {
		if r := s.accepts; r != nil {
			if _, ok := a.accepting[r]; !ok {
				a.accepting[r] = s
			}
		}
		for sym := range s.edges {
			if !seen[sym] {
				seen[sym] = true
				a.alphabet = append(a.alphabet, sym)
			}
		}
	}
	sortSymbols(a.alphabet, order)
	return a
}

// Start returns the start state.
func (a *Automaton) Start() *State {
	return a.start
}

// States returns every reachable state indexed by ID.
func (a *Automaton) States() []*State {
	out := make([]*State, len(a.states))
	copy(out, a.states)
	return out
}

// Len returns the number of states.
func (a *Automaton) Len() int {
	return len(a.states)
}

// State returns the state with the given ID, or nil.
func (a *Automaton) State(id int) *State {
	if id < 0 || id >= len(a.states) {
		return nil
	}
	return a.states[id]
}

// Rules returns the rule set the automaton was built from.
func (a *Automaton) Rules() *rules.Set {
	return a.set
}

// Alphabet returns every symbol that labels a transition, in symbol order.
func (a *Automaton) Alphabet() []*isa.Symbol {
	out := make([]*isa.Symbol, len(a.alphabet))
	copy(out, a.alphabet)
	return out
}

// Next is the (state, symbol) -> state query. false means none.
func (a *Automaton) Next(s *State, sym *isa.Symbol) (*State, bool) {
	return s.Next(sym)
}

// Step advances s on sym. When s has no successor the symbol is retried from
// the start state; when that fails too the start state is returned.
func (a *Automaton) Step(s *State, sym *isa.Symbol) *State {
	if next, ok := s.Next(sym); ok {
		return next
	}
	if s != a.start {
		if next, ok := a.start.Next(sym); ok {
			return next
		}
	}
	return a.start
}

// AcceptingState returns the state in which rule r is recognized.
func (a *Automaton) AcceptingState(r *rules.Rule) (*State, bool) {
	s, ok := a.accepting[r]
	return s, ok
}

// Transitions returns the outgoing edges of s in symbol order.
func (a *Automaton) Transitions(s *State) []Transition {
	syms := s.symbols(a.order)
	out := make([]Transition, len(syms))
	for i, sym := range syms {
		out[i] = Transition{Symbol: sym, Target: s.edges[sym]}
	}
	return out
}

// Dump writes a human-readable listing of every state.
func (a *Automaton) Dump(w io.Writer) error {
	for _, s := range a.states {
		header := fmt.Sprintf("state %d", s.id)
		if s.accepts != nil {
			header += fmt.Sprintf(" accepts %q", s.accepts.Name)
		}
		if !s.restart {
			header += " (settled)"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, m := range s.markers {
			if _, err := fmt.Fprintf(w, "  %s\n", m); err != nil {
				return err
			}
		}
		for _, t := range a.Transitions(s) {
			if _, err := fmt.Fprintf(w, "  %s -> %d\n", t.Symbol.Name, t.Target.id); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortSymbols(syms []*isa.Symbol, order isa.Order) {
	sort.Slice(syms, func(i, j int) bool { return order(syms[i], syms[j]) < 0 })
}
