// Package isa describes the instruction catalog that rewrite rules are written against.
//
// A catalog is an ordered registry of instruction symbols. Each symbol has a
// unique name, an ordered list of immediate-operand slots and a net stack
// effect. Definition order is the stable symbol order used everywhere output
// must be deterministic.
package isa

import (
	"errors"
	"fmt"
	"strings"
)

// SlotKind enumerates the immediate operand encodings.
type SlotKind int

const (
	// SlotByte is an unsigned 8-bit literal.
	SlotByte SlotKind = iota
	// SlotShort is a 16-bit literal.
	SlotShort
	// SlotInt is a 32-bit literal.
	SlotInt
	// SlotLocal is a local variable index.
	SlotLocal
	// SlotConst is a constant pool index.
	SlotConst
	// SlotBranch is a relative branch offset.
	SlotBranch
)

var slotNames = [...]string{
	SlotByte:   "byte",
	SlotShort:  "short",
	SlotInt:    "int",
	SlotLocal:  "local",
	SlotConst:  "const",
	SlotBranch: "branch",
}

var slotWidths = [...]int{
	SlotByte:   1,
	SlotShort:  2,
	SlotInt:    4,
	SlotLocal:  1,
	SlotConst:  2,
	SlotBranch: 4,
}

// OpcodeWidth is the encoded size of an opcode in bytes.
const OpcodeWidth = 1

// String returns the name used in definition files.
func (k SlotKind) String() string {
	if k < 0 || int(k) >= len(slotNames) {
		return fmt.Sprintf("SlotKind(%d)", int(k))
	}
	return slotNames[k]
}

// Width returns the encoded size of the slot in bytes.
func (k SlotKind) Width() int {
	if k < 0 || int(k) >= len(slotWidths) {
		return 0
	}
	return slotWidths[k]
}

// ParseSlotKind maps a definition file name to a SlotKind.
func ParseSlotKind(name string) (SlotKind, error) {
	for i, n := range slotNames {
		if strings.EqualFold(n, name) {
			return SlotKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSlotKind, name)
}

// Slot is one immediate operand of an instruction.
type Slot struct {
	Kind     SlotKind
	Position int
}

// Symbol is an instruction with a fixed immediate arity and a known stack effect.
type Symbol struct {
	ID          int
	Name        string
	Slots       []Slot
	StackEffect int
}

// Size returns the encoded size of the instruction in bytes.
func (s *Symbol) Size() int {
	size := OpcodeWidth
	for _, slot := range s.Slots {
		size += slot.Kind.Width()
	}
	return size
}

func (s *Symbol) String() string {
	return s.Name
}

// Errors returned while defining a catalog.
var (
	ErrDuplicateSymbol = errors.New("duplicate instruction symbol")
	ErrUnknownSlotKind = errors.New("unknown immediate slot kind")
	ErrEmptyName       = errors.New("instruction symbol has no name")
)

// Order compares two symbols. It returns a negative number when a sorts
// before b, zero when they are the same symbol and a positive number otherwise.
type Order func(a, b *Symbol) int

// Catalog is an ordered registry of instruction symbols.
type Catalog struct {
	symbols []*Symbol
	byName  map[string]*Symbol
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]*Symbol),
	}
}

// Define registers a new symbol. Symbols receive dense IDs in definition order.
func (c *Catalog) Define(name string, stackEffect int, kinds ...SlotKind) (*Symbol, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, exists := c.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, name)
	}

	sym := &Symbol{
		ID:          len(c.symbols),
		Name:        name,
		StackEffect: stackEffect,
		Slots:       make([]Slot, len(kinds)),
	}
	for i, k := range kinds {
		if k < 0 || int(k) >= len(slotNames) {
			return nil, fmt.Errorf("%w: %s slot %d", ErrUnknownSlotKind, name, i)
		}
		sym.Slots[i] = Slot{Kind: k, Position: i}
	}

	c.symbols = append(c.symbols, sym)
	c.byName[name] = sym
	return sym, nil
}

// MustDefine is like Define but panics on error. It is meant for static catalogs.
func (c *Catalog) MustDefine(name string, stackEffect int, kinds ...SlotKind) *Symbol {
	sym, err := c.Define(name, stackEffect, kinds...)
	if err != nil {
		panic(err)
	}
	return sym
}

// Lookup returns the symbol with the given name.
func (c *Catalog) Lookup(name string) (*Symbol, bool) {
	sym, ok := c.byName[name]
	return sym, ok
}

// Symbol returns the symbol with the given ID, or nil.
func (c *Catalog) Symbol(id int) *Symbol {
	if id < 0 || id >= len(c.symbols) {
		return nil
	}
	return c.symbols[id]
}

// Symbols returns the symbols in definition order.
func (c *Catalog) Symbols() []*Symbol {
	out := make([]*Symbol, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Len returns the number of symbols.
func (c *Catalog) Len() int {
	return len(c.symbols)
}

// Compare orders symbols by definition order. It satisfies Order.
func (c *Catalog) Compare(a, b *Symbol) int {
	return a.ID - b.ID
}
