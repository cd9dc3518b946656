// Package stream drives a peephole automaton over an instruction stream.
//
// A Scanner walks the stream and reports the leftmost-longest acceptance whose
// immediate constraints hold. When an acceptance fails its constraints the
// matched instructions are left unrewritten and the scan resumes after them.
// Matches are delivered via callbacks to avoid buffering results.
//
// Example usage:
//
//	sc, _ := stream.NewScanner(auto, stream.Config{})
//	err := sc.Find(code, func(m stream.Match) bool {
//	    fmt.Printf("%s at %d..%d\n", m.Rule.Name, m.Start, m.End)
//	    return true // continue
//	})
package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/KromDaniel/peepgen/automaton"
	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

// Instruction is one decoded instruction of the stream.
type Instruction struct {
	Symbol     *isa.Symbol
	Immediates []int64
}

// I builds an Instruction.
func I(sym *isa.Symbol, imms ...int64) Instruction {
	return Instruction{Symbol: sym, Immediates: imms}
}

func (in Instruction) String() string {
	if len(in.Immediates) == 0 {
		return in.Symbol.Name
	}
	return fmt.Sprintf("%s %v", in.Symbol.Name, in.Immediates)
}

// Match is one accepted rule whose constraints held.
//
// Values aliases the immediates of the scanned instructions. Copy it if the
// input slice is modified after the callback returns.
type Match struct {
	Rule *rules.Rule

	// Start and End delimit the matched instructions, End exclusive.
	Start, End int

	// Offset is the byte position of the first matched instruction.
	Offset int

	// Values holds the immediates of each matched instruction.
	Values [][]int64
}

// Config configures a Scanner.
type Config struct {
	// MaxMatches stops scanning after that many matches. 0 means unlimited.
	MaxMatches int

	// Context for cancellation support.
	// Default: nil (no cancellation).
	Context context.Context
}

// DefaultConfig returns a Config with no match limit.
func DefaultConfig() Config {
	return Config{}
}

// Errors returned while scanning.
var (
	ErrNegativeLimit  = errors.New("stream: negative match limit")
	ErrImmediateCount = errors.New("stream: wrong number of immediates")
	ErrMissingSymbol  = errors.New("stream: instruction has no symbol")
	ErrNilAutomaton   = errors.New("stream: no automaton")
	errStopped        = errors.New("stream: stopped")
)

// Validate validates the Config and returns an error if invalid.
func (c Config) Validate() error {
	if c.MaxMatches < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeLimit, c.MaxMatches)
	}
	return nil
}

// ApplyDefaults returns a Config with defaults applied for any zero values.
func (c Config) ApplyDefaults() Config {
	result := c
	if result.Context == nil {
		result.Context = context.Background()
	}
	return result
}

// Scanner finds rule matches in instruction streams. It is safe for
// concurrent use; the automaton is shared read-only.
type Scanner struct {
	auto *automaton.Automaton
	cfg  Config
}

// NewScanner creates a Scanner over auto.
func NewScanner(auto *automaton.Automaton, cfg Config) (*Scanner, error) {
	if auto == nil {
		return nil, ErrNilAutomaton
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{auto: auto, cfg: cfg.ApplyDefaults()}, nil
}

// Automaton returns the automaton the scanner drives.
func (s *Scanner) Automaton() *automaton.Automaton {
	return s.auto
}

// Find calls fn for every match in code, in stream order. Matches never
// overlap. Returning false from fn stops the scan without error.
func (s *Scanner) Find(code []Instruction, fn func(Match) bool) error {
	offsets, err := layout(code)
	if err != nil {
		return err
	}

	sc := &scan{
		Scanner: s,
		code:    code,
		offsets: offsets,
		fn:      fn,
	}
	if err := sc.run(); err != nil && !errors.Is(err, errStopped) {
		return err
	}
	return nil
}

// FindAll collects every match in code.
func (s *Scanner) FindAll(code []Instruction) ([]Match, error) {
	var out []Match
	err := s.Find(code, func(m Match) bool {
		out = append(out, m)
		return true
	})
	return out, err
}

// layout validates code and returns the byte offset of each instruction plus
// the total size.
func layout(code []Instruction) ([]int, error) {
	offsets := make([]int, len(code)+1)
	for i, in := range code {
		if in.Symbol == nil {
			return nil, fmt.Errorf("%w: instruction %d", ErrMissingSymbol, i)
		}
		if len(in.Immediates) != len(in.Symbol.Slots) {
			return nil, fmt.Errorf("%w: instruction %d (%s) has %d, want %d",
				ErrImmediateCount, i, in.Symbol.Name, len(in.Immediates), len(in.Symbol.Slots))
		}
		offsets[i+1] = offsets[i] + in.Symbol.Size()
	}
	return offsets, nil
}

// candidate is the best acceptance seen since the last commit.
type candidate struct {
	rule       *rules.Rule
	start, end int
}

// scan is the state of one Find call.
type scan struct {
	*Scanner
	code    []Instruction
	offsets []int
	fn      func(Match) bool
	matches int
}

func (sc *scan) run() error {
	start := sc.auto.Start()
	state := start
	var best *candidate

	i := 0
	for {
		if i&1023 == 0 {
			if err := sc.cfg.Context.Err(); err != nil {
				return err
			}
		}

		if i >= len(sc.code) {
			if best == nil {
				return nil
			}
			if err := sc.commit(best); err != nil {
				return err
			}
			i, state, best = best.end, start, nil
			continue
		}

		next, ok := state.Next(sc.code[i].Symbol)
		if !ok {
			switch {
			case best != nil:
				if err := sc.commit(best); err != nil {
					return err
				}
				i, state, best = best.end, start, nil
			case state != start:
				state = start
			default:
				i++
			}
			continue
		}

		state = next
		i++
		if r := state.Accepts(); r != nil {
			from := i - r.Len()
			switch {
			case r.Satisfied(sc.values(from, i)):
				// A later acceptance replaces the candidate only when it does
				// not start after it.
				if best == nil || from <= best.start {
					best = &candidate{rule: r, start: from, end: i}
				}
			case best != nil && best.start < from && best.end > from:
				// The pending candidate starts first and overlaps; it wins.
				if err := sc.commit(best); err != nil {
					return err
				}
				i, state, best = best.end, start, nil
				continue
			default:
				// [from, i) stays as it is. An earlier disjoint candidate is
				// still delivered, then the scan resumes at i.
				if best != nil && best.end <= from {
					if err := sc.commit(best); err != nil {
						return err
					}
				}
				state, best = start, nil
				continue
			}
		}
		if best != nil && state.Terminal() {
			if err := sc.commit(best); err != nil {
				return err
			}
			i, state, best = best.end, start, nil
		}
	}
}

func (sc *scan) values(from, to int) [][]int64 {
	values := make([][]int64, to-from)
	for k := range values {
		values[k] = sc.code[from+k].Immediates
	}
	return values
}

// commit delivers the candidate. The scan resumes after it.
func (sc *scan) commit(c *candidate) error {
	m := Match{
		Rule:   c.rule,
		Start:  c.start,
		End:    c.end,
		Offset: sc.offsets[c.start],
		Values: sc.values(c.start, c.end),
	}
	sc.matches++
	if !sc.fn(m) {
		return errStopped
	}
	if sc.cfg.MaxMatches > 0 && sc.matches >= sc.cfg.MaxMatches {
		return errStopped
	}
	return nil
}
