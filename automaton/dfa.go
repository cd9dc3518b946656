package automaton

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

// DefaultMaxStates bounds subset construction.
const DefaultMaxStates = 4096

// Errors raised during determinization.
var (
	ErrAmbiguousAccept = errors.New("multiple rewrite rules could apply simultaneously")
	ErrTooManyStates   = errors.New("automaton state explosion")
	ErrNoOrder         = errors.New("no symbol order supplied")
)

// Options configures automaton construction.
type Options struct {
	// MaxStates is the largest number of DFA states allowed. Zero means DefaultMaxStates.
	MaxStates int
}

// builder carries the state of one subset construction.
type builder struct {
	nfa      *nfa
	order    isa.Order
	max      int
	states   []*State
	sets     []stateSet
	stateMap map[string]int
}

// Build determinizes the rule set into an automaton. order fixes the symbol
// iteration order and with it the numbering of states.
func Build(set *rules.Set, order isa.Order, opts Options) (*Automaton, error) {
	if order == nil {
		return nil, ErrNoOrder
	}
	maxStates := opts.MaxStates
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}

	b := &builder{
		nfa:      buildNFA(set),
		order:    order,
		max:      maxStates,
		stateMap: make(map[string]int),
	}

	start, _, err := b.intern(b.nfa.epsilonClosure([]*nfaState{b.nfa.start}))
	if err != nil {
		return nil, err
	}

	worklist := []int{start.id}
	for len(worklist) > 0 {
		idx := worklist[0]
		worklist = worklist[1:]

		state, current := b.states[idx], b.sets[idx]
		sources := b.nfa.sources(current)

		for _, sym := range b.alphabet(sources) {
			next, err := b.successor(sources, sym)
			if err != nil {
				return nil, err
			}
			target, created, err := b.intern(next)
			if err != nil {
				return nil, err
			}
			state.edges[sym] = target
			if created {
				worklist = append(worklist, target.id)
			}
		}
	}

	return newAutomaton(set, order, b.states), nil
}

// alphabet is the sorted union of the non-epsilon symbols of sources.
func (b *builder) alphabet(sources []*nfaState) []*isa.Symbol {
	seen := make(map[*isa.Symbol]bool)
	var syms []*isa.Symbol
	for _, s := range sources {
		for sym := range s.edges {
			if !seen[sym] {
				seen[sym] = true
				syms = append(syms, sym)
			}
		}
	}
	sort.Slice(syms, func(i, j int) bool { return b.order(syms[i], syms[j]) < 0 })
	return syms
}

// successor computes the DFA successor of sources on sym. Acceptance is
// resolved on the raw target set, before closure.
func (b *builder) successor(sources []*nfaState, sym *isa.Symbol) (stateSet, error) {
	seen := make(map[int]bool)
	var raw, accepting []*nfaState
	for _, s := range sources {
		for _, t := range s.edges[sym] {
			if seen[t.id] {
				continue
			}
			seen[t.id] = true
			raw = append(raw, t)
			if t.marker.Accepting() {
				accepting = append(accepting, t)
			}
		}
	}

	switch {
	case len(accepting) > 1:
		return stateSet{}, ambiguityError(accepting, raw)
	case len(accepting) == 1 && accepting[0].marker.Rule.Unconditional():
		// Nothing else still forming can matter once this rule is settled.
		return b.nfa.epsilonClosure(accepting), nil
	default:
		return b.nfa.epsilonClosure(raw), nil
	}
}

func ambiguityError(accepting, raw []*nfaState) error {
	err := &rules.Error{Err: ErrAmbiguousAccept, Marker: -1}
	for _, s := range accepting {
		err.Rules = append(err.Rules, s.marker.Rule)
	}
	sort.Slice(err.Rules, func(i, j int) bool { return err.Rules[i].Index < err.Rules[j].Index })
	err.Detail = fmt.Sprintf("%d candidate states", len(raw))
	return err
}

// intern returns the DFA state for set, creating it when the set is new.
func (b *builder) intern(set stateSet) (*State, bool, error) {
	key := setKey(set)
	if idx, ok := b.stateMap[key]; ok {
		return b.states[idx], false, nil
	}

	idx := len(b.states)
	if idx >= b.max {
		return nil, false, fmt.Errorf("%w: exceeded %d states", ErrTooManyStates, b.max)
	}

	state := &State{
		node:    newNode[*State](idx),
		restart: set.restart,
		markers: make([]Marker, 0, len(set.ids)),
	}
	for _, id := range set.ids {
		m := *b.nfa.states[id].marker
		state.markers = append(state.markers, m)
		if m.Accepting() {
			state.accepts = m.Rule
		}
	}

	b.states = append(b.states, state)
	b.sets = append(b.sets, set)
	b.stateMap[key] = idx
	return state, true, nil
}

// setKey creates a unique string key for a normalized state set.
func setKey(set stateSet) string {
	var sb strings.Builder
	if set.restart {
		sb.WriteString("r")
	}
	for _, id := range set.ids {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(id))
	}
	return sb.String()
}
