package automaton

import (
	"reflect"
	"testing"

	"github.com/KromDaniel/peepgen/rules"
	"github.com/fxamacker/cbor/v2"
)

func TestTable(t *testing.T) {
	f := newFixture()
	a := f.build(t, rules.Options{}, raw("dup-pop", rules.P(f.dup), rules.P(f.pop)))
	tab := a.Table()

	want := &Table{
		Symbols:   []string{"POP", "DUP"},
		SymbolIDs: []int{f.pop.ID, f.dup.ID},
		Rules:     []string{"dup-pop"},
		Start:     0,
		Next: [][]int{
			{None, 1},
			{2, 1},
			{None, None},
		},
		Accept:  []int{None, None, 0},
		Settled: []bool{false, false, true},
	}
	if !reflect.DeepEqual(tab, want) {
		t.Fatalf("Table() = %+v, want %+v", tab, want)
	}

	tests := []struct {
		name   string
		state  int
		column int
		want   int
	}{
		{"start on DUP", 0, tab.Column("DUP"), 1},
		{"start on POP", 0, tab.Column("POP"), None},
		{"pair complete", 1, tab.Column("POP"), 2},
		{"unknown column", 0, tab.Column("SWAP"), None},
		{"state out of range", 7, 0, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tab.Step(tt.state, tt.column); got != tt.want {
				t.Errorf("Step(%d, %d) = %d, want %d", tt.state, tt.column, got, tt.want)
			}
		})
	}

	if got := tab.Accepts(2); got != 0 {
		t.Errorf("Accepts(2) = %d, want 0", got)
	}
	if got := tab.Accepts(-1); got != None {
		t.Errorf("Accepts(-1) = %d, want None", got)
	}
}

func TestTableBinaryRoundTrip(t *testing.T) {
	f := newFixture()
	a := f.build(t, rules.Options{},
		raw("dup-pop", rules.P(f.dup), rules.P(f.pop)),
		raw("store-load", rules.P(f.store, "x"), rules.P(f.load, "x")),
	)
	tab := a.Table()

	data, err := tab.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	again, err := tab.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(again) {
		t.Error("canonical encoding is not stable")
	}

	got, err := UnmarshalTable(data)
	if err != nil {
		t.Fatalf("UnmarshalTable() error = %v", err)
	}
	if !reflect.DeepEqual(got, tab) {
		t.Errorf("round trip = %+v, want %+v", got, tab)
	}
	if got.Fingerprint() != tab.Fingerprint() {
		t.Error("fingerprint changed across round trip")
	}
}

// The snapshot is a plain CBOR map keyed by field number, also when the
// table is nested inside another value the encoder walks.
func TestTableWireFormat(t *testing.T) {
	f := newFixture()
	tab := f.build(t, rules.Options{}, raw("dup-pop", rules.P(f.dup), rules.P(f.pop))).Table()

	data, err := tab.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	var fields map[int]cbor.RawMessage
	if err := cbor.Unmarshal(data, &fields); err != nil {
		t.Fatalf("snapshot is not a CBOR map: %v", err)
	}
	for key := 1; key <= 7; key++ {
		if _, ok := fields[key]; !ok {
			t.Errorf("snapshot lacks field %d", key)
		}
	}

	nested, err := cbor.Marshal([]*Table{tab})
	if err != nil {
		t.Fatalf("encoding a nested table failed: %v", err)
	}
	var back [][]byte
	if err := cbor.Unmarshal(nested, &back); err != nil || len(back) != 1 {
		t.Fatalf("nested table = %v, %v", back, err)
	}
	got, err := UnmarshalTable(back[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Fingerprint() != tab.Fingerprint() {
		t.Error("nested snapshot does not decode to the same table")
	}
}

func TestUnmarshalTableRejectsInconsistent(t *testing.T) {
	tests := []struct {
		name  string
		table Table
	}{
		{"symbol ids", Table{Symbols: []string{"A"}, Next: [][]int{{None}}, Accept: []int{None}, Settled: []bool{false}}},
		{"state arrays", Table{Next: [][]int{{}}, Accept: []int{}, Settled: []bool{false}}},
		{"start range", Table{Start: 3, Next: [][]int{{}}, Accept: []int{None}, Settled: []bool{false}}},
		{"row width", Table{Symbols: []string{"A"}, SymbolIDs: []int{0}, Next: [][]int{{}}, Accept: []int{None}, Settled: []bool{false}}},
		{"target range", Table{Symbols: []string{"A"}, SymbolIDs: []int{0}, Next: [][]int{{4}}, Accept: []int{None}, Settled: []bool{false}}},
		{"accept range", Table{Next: [][]int{{}}, Accept: []int{2}, Settled: []bool{false}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tableEncMode.Marshal((*tableWire)(&tt.table))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := UnmarshalTable(data); err == nil {
				t.Error("UnmarshalTable() accepted an inconsistent table")
			}
		})
	}

	if _, err := UnmarshalTable([]byte{0xff, 0x00}); err == nil {
		t.Error("UnmarshalTable() accepted garbage")
	}
}

func TestFingerprintDistinguishesTables(t *testing.T) {
	f := newFixture()
	one := f.build(t, rules.Options{}, raw("dup-pop", rules.P(f.dup), rules.P(f.pop))).Table()
	two := f.build(t, rules.Options{}, raw("ab", rules.P(f.a), rules.P(f.b))).Table()
	if one.Fingerprint() == two.Fingerprint() {
		t.Error("different tables share a fingerprint")
	}
}
