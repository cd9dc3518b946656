package isa

import (
	"errors"
	"testing"
)

func TestCatalogDefine(t *testing.T) {
	c := NewCatalog()
	pop := c.MustDefine("POP", -1)
	load := c.MustDefine("LOAD", 1, SlotLocal)
	ldc := c.MustDefine("LDC", 1, SlotConst)

	if pop.ID != 0 || load.ID != 1 || ldc.ID != 2 {
		t.Fatalf("IDs = %d %d %d, want 0 1 2", pop.ID, load.ID, ldc.ID)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if got, ok := c.Lookup("LOAD"); !ok || got != load {
		t.Errorf("Lookup(LOAD) = %v, %v", got, ok)
	}
	if _, ok := c.Lookup("STORE"); ok {
		t.Error("Lookup(STORE) found a symbol that was never defined")
	}
	if c.Symbol(2) != ldc || c.Symbol(3) != nil || c.Symbol(-1) != nil {
		t.Error("Symbol(id) did not index by definition order")
	}
	if load.Slots[0].Position != 0 || load.Slots[0].Kind != SlotLocal {
		t.Errorf("LOAD slot = %+v", load.Slots[0])
	}
}

func TestCatalogDefineErrors(t *testing.T) {
	c := NewCatalog()
	c.MustDefine("DUP", 1)

	if _, err := c.Define("DUP", 1); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("duplicate Define error = %v, want ErrDuplicateSymbol", err)
	}
	if _, err := c.Define("", 0); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
	if _, err := c.Define("BAD", 0, SlotKind(42)); !errors.Is(err, ErrUnknownSlotKind) {
		t.Errorf("bad slot error = %v, want ErrUnknownSlotKind", err)
	}
	if c.Len() != 1 {
		t.Errorf("failed definitions were registered: Len() = %d", c.Len())
	}
}

func TestSymbolSize(t *testing.T) {
	tests := []struct {
		kinds []SlotKind
		want  int
	}{
		{nil, 1},
		{[]SlotKind{SlotByte}, 2},
		{[]SlotKind{SlotLocal, SlotConst}, 4},
		{[]SlotKind{SlotBranch}, 5},
		{[]SlotKind{SlotShort, SlotInt}, 7},
	}

	for _, tt := range tests {
		c := NewCatalog()
		sym := c.MustDefine("X", 0, tt.kinds...)
		if got := sym.Size(); got != tt.want {
			t.Errorf("Size(%v) = %d, want %d", tt.kinds, got, tt.want)
		}
	}
}

func TestParseSlotKind(t *testing.T) {
	for _, k := range []SlotKind{SlotByte, SlotShort, SlotInt, SlotLocal, SlotConst, SlotBranch} {
		got, err := ParseSlotKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseSlotKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if got, err := ParseSlotKind("LOCAL"); err != nil || got != SlotLocal {
		t.Errorf("ParseSlotKind is case sensitive: %v, %v", got, err)
	}
	if _, err := ParseSlotKind("float"); !errors.Is(err, ErrUnknownSlotKind) {
		t.Errorf("ParseSlotKind(float) error = %v", err)
	}
}

func TestCatalogCompare(t *testing.T) {
	c := NewCatalog()
	a := c.MustDefine("A", 0)
	b := c.MustDefine("B", 0)

	var order Order = c.Compare
	if order(a, b) >= 0 || order(b, a) <= 0 || order(a, a) != 0 {
		t.Error("Compare does not follow definition order")
	}
}
