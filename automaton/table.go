package automaton

import (
	"encoding/binary"
	"fmt"

	"github.com/KromDaniel/peepgen/rules"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

// None marks a missing transition or acceptance in a Table.
const None = -1

// Table is the automaton flattened to dense integer arrays. Columns follow
// the automaton alphabet. A Table can be embedded in generated code or
// snapshotted and driven without the builder.
type Table struct {
	Symbols   []string `cbor:"1,keyasint"`
	SymbolIDs []int    `cbor:"2,keyasint"`
	Rules     []string `cbor:"3,keyasint"`
	Start     int      `cbor:"4,keyasint"`
	Next      [][]int  `cbor:"5,keyasint"`
	Accept    []int    `cbor:"6,keyasint"`
	Settled   []bool   `cbor:"7,keyasint"`
}

// Table flattens the automaton.
func (a *Automaton) Table() *Table {
	t := &Table{
		Symbols:   make([]string, len(a.alphabet)),
		SymbolIDs: make([]int, len(a.alphabet)),
		Rules:     make([]string, len(a.set.Rules)),
		Start:     a.start.id,
		Next:      make([][]int, len(a.states)),
		Accept:    make([]int, len(a.states)),
		Settled:   make([]bool, len(a.states)),
	}

	column := make(map[string]int, len(a.alphabet))
	for i, sym := range a.alphabet {
		t.Symbols[i] = sym.Name
		t.SymbolIDs[i] = sym.ID
		column[sym.Name] = i
	}

	ruleIndex := make(map[*rules.Rule]int, len(a.set.Rules))
	for i, r := range a.set.Rules {
		t.Rules[i] = r.Name
		ruleIndex[r] = i
	}

	for _, s := range a.states {
		row := make([]int, len(a.alphabet))
		for i := range row {
			row[i] = None
		}
		for sym, target := range s.edges {
			row[column[sym.Name]] = target.id
		}
		t.Next[s.id] = row

		t.Accept[s.id] = None
		if s.accepts != nil {
			t.Accept[s.id] = ruleIndex[s.accepts]
		}
		t.Settled[s.id] = !s.restart
	}
	return t
}

// Column returns the column of a symbol name, or None.
func (t *Table) Column(symbol string) int {
	for i, name := range t.Symbols {
		if name == symbol {
			return i
		}
	}
	return None
}

// Step returns the successor of state on column, or None.
func (t *Table) Step(state, column int) int {
	if state < 0 || state >= len(t.Next) || column < 0 || column >= len(t.Symbols) {
		return None
	}
	return t.Next[state][column]
}

// Accepts returns the rule index accepted in state, or None.
func (t *Table) Accepts(state int) int {
	if state < 0 || state >= len(t.Accept) {
		return None
	}
	return t.Accept[state]
}

// Fingerprint hashes the table contents. Equal tables have equal fingerprints.
func (t *Table) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	writeInt(len(t.Symbols))
	for i, s := range t.Symbols {
		writeString(s)
		writeInt(t.SymbolIDs[i])
	}
	writeInt(len(t.Rules))
	for _, r := range t.Rules {
		writeString(r)
	}
	writeInt(t.Start)
	writeInt(len(t.Next))
	for i, row := range t.Next {
		for _, v := range row {
			writeInt(v)
		}
		writeInt(t.Accept[i])
		if t.Settled[i] {
			writeInt(1)
		} else {
			writeInt(0)
		}
	}
	return h.Sum64()
}

// tableWire is the CBOR form of a Table. It has no methods, so the encoder
// does not route it back through MarshalBinary.
type tableWire Table

var tableEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("automaton: cbor enc mode: %v", err))
	}
	tableEncMode = em
}

// MarshalBinary encodes the table as canonical CBOR.
func (t *Table) MarshalBinary() ([]byte, error) {
	return tableEncMode.Marshal((*tableWire)(t))
}

// UnmarshalTable decodes a table written by MarshalBinary and checks that its
// arrays are consistent.
func UnmarshalTable(data []byte) (*Table, error) {
	var w tableWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	t := (*Table)(&w)
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate() error {
	if len(t.SymbolIDs) != len(t.Symbols) {
		return fmt.Errorf("decode table: %d symbol ids for %d symbols", len(t.SymbolIDs), len(t.Symbols))
	}
	if len(t.Accept) != len(t.Next) || len(t.Settled) != len(t.Next) {
		return fmt.Errorf("decode table: state arrays disagree (%d next, %d accept, %d settled)",
			len(t.Next), len(t.Accept), len(t.Settled))
	}
	if t.Start < 0 || t.Start >= len(t.Next) {
		return fmt.Errorf("decode table: start state %d out of range", t.Start)
	}
	for i, row := range t.Next {
		if len(row) != len(t.Symbols) {
			return fmt.Errorf("decode table: state %d has %d columns, want %d", i, len(row), len(t.Symbols))
		}
		for _, v := range row {
			if v < None || v >= len(t.Next) {
				return fmt.Errorf("decode table: state %d targets %d", i, v)
			}
		}
		if a := t.Accept[i]; a < None || a >= len(t.Rules) {
			return fmt.Errorf("decode table: state %d accepts rule %d", i, a)
		}
	}
	return nil
}
