package automaton

import (
	"sort"

	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

// node holds what NFA and DFA states have in common: an id and a transition
// map whose target type differs between the two automatons.
type node[T any] struct {
	id    int
	edges map[*isa.Symbol]T
}

func newNode[T any](id int) node[T] {
	return node[T]{id: id, edges: make(map[*isa.Symbol]T)}
}

// symbols returns the outgoing symbols sorted by order.
func (n *node[T]) symbols(order isa.Order) []*isa.Symbol {
	syms := make([]*isa.Symbol, 0, len(n.edges))
	for sym := range n.edges {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return order(syms[i], syms[j]) < 0 })
	return syms
}

// Marker records how far a rule's LHS has been recognized.
// Position == Rule.Len() marks acceptance.
type Marker struct {
	Rule     *rules.Rule
	Position int
}

// Accepting reports whether the whole LHS has been seen.
func (m Marker) Accepting() bool {
	return m.Position == m.Rule.Len()
}

func (m Marker) String() string {
	return m.Rule.Format(m.Position)
}

// nfaState is a state of the nondeterministic automaton. marker is nil only
// for the start state.
type nfaState struct {
	node[[]*nfaState]
	marker  *Marker
	epsilon []*nfaState
}

// unconditionalAccept reports whether reaching this state settles a rule
// with no immediate constraints.
func (s *nfaState) unconditionalAccept() bool {
	return s.marker != nil && s.marker.Accepting() && s.marker.Rule.Unconditional()
}

// nfa recognizes every rule's LHS anchored at any stream position.
type nfa struct {
	start  *nfaState
	states []*nfaState
}

func (n *nfa) newState(marker *Marker) *nfaState {
	s := &nfaState{node: newNode[[]*nfaState](len(n.states)), marker: marker}
	n.states = append(n.states, s)
	return s
}

// buildNFA lays out one linear chain per rule hanging off the start state.
// Every state except the start state and unconditionally accepting states
// gets an epsilon edge back to the start, so a candidate that fails to extend
// never blocks a fresh match beginning at the rejected position.
func buildNFA(set *rules.Set) *nfa {
	n := &nfa{}
	n.start = n.newState(nil)

	for _, rule := range set.Rules {
		prev := n.start
		for i, sym := range rule.Symbols() {
			next := n.newState(&Marker{Rule: rule, Position: i + 1})
			prev.edges[sym] = append(prev.edges[sym], next)
			prev = next
		}
	}

	for _, s := range n.states[1:] {
		if !s.unconditionalAccept() {
			s.epsilon = append(s.epsilon, n.start)
		}
	}
	return n
}

// stateSet is a normalized set of NFA states used as a DFA state identity.
// The start state never appears in ids; restart records that it was reached.
type stateSet struct {
	ids     []int
	restart bool
}

// epsilonClosure follows epsilon edges from seeds. The result is sorted.
func (n *nfa) epsilonClosure(seeds []*nfaState) stateSet {
	seen := make(map[int]bool, len(seeds))
	stack := make([]*nfaState, len(seeds))
	copy(stack, seeds)

	var set stateSet
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s.id] {
			continue
		}
		seen[s.id] = true

		if s == n.start {
			set.restart = true
		} else {
			set.ids = append(set.ids, s.id)
		}
		stack = append(stack, s.epsilon...)
	}

	sort.Ints(set.ids)
	return set
}

// sources returns the NFA states whose edges a DFA state offers, including
// the implicit start state.
func (n *nfa) sources(set stateSet) []*nfaState {
	out := make([]*nfaState, 0, len(set.ids)+1)
	if set.restart {
		out = append(out, n.start)
	}
	for _, id := range set.ids {
		out = append(out, n.states[id])
	}
	return out
}
