package stream

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/KromDaniel/peepgen/isa"
)

// Errors returned by the bytecode codec.
var (
	ErrTruncated     = errors.New("stream: truncated instruction")
	ErrUnknownOpcode = errors.New("stream: unknown opcode")
	ErrOutOfRange    = errors.New("stream: immediate out of range")
)

// Encode writes code as bytecode: one opcode byte holding the symbol ID
// followed by the immediates, big-endian, at their slot widths.
func Encode(code []Instruction) ([]byte, error) {
	if _, err := layout(code); err != nil {
		return nil, err
	}
	var out []byte
	for i, in := range code {
		if in.Symbol.ID < 0 || in.Symbol.ID > 0xff {
			return nil, fmt.Errorf("%w: instruction %d opcode %d", ErrOutOfRange, i, in.Symbol.ID)
		}
		out = append(out, byte(in.Symbol.ID))
		for j, slot := range in.Symbol.Slots {
			v := in.Immediates[j]
			if !fits(slot.Kind, v) {
				return nil, fmt.Errorf("%w: instruction %d (%s) slot %d: %d does not fit %s",
					ErrOutOfRange, i, in.Symbol.Name, j, v, slot.Kind)
			}
			out = appendSlot(out, slot.Kind, v)
		}
	}
	return out, nil
}

// Decode reads bytecode written by Encode against cat.
func Decode(cat *isa.Catalog, data []byte) ([]Instruction, error) {
	var code []Instruction
	for pos := 0; pos < len(data); {
		sym := cat.Symbol(int(data[pos]))
		if sym == nil {
			return nil, fmt.Errorf("%w: %d at byte %d", ErrUnknownOpcode, data[pos], pos)
		}
		if pos+sym.Size() > len(data) {
			return nil, fmt.Errorf("%w: %s at byte %d needs %d bytes", ErrTruncated, sym.Name, pos, sym.Size())
		}
		at := pos + isa.OpcodeWidth
		var imms []int64
		if len(sym.Slots) > 0 {
			imms = make([]int64, len(sym.Slots))
		}
		for j, slot := range sym.Slots {
			imms[j] = readSlot(data[at:], slot.Kind)
			at += slot.Kind.Width()
		}
		code = append(code, Instruction{Symbol: sym, Immediates: imms})
		pos = at
	}
	return code, nil
}

// fits reports whether v is representable. Byte, local and const slots are
// unsigned; the others are signed.
func fits(kind isa.SlotKind, v int64) bool {
	switch kind {
	case isa.SlotByte, isa.SlotLocal:
		return v >= 0 && v <= 0xff
	case isa.SlotConst:
		return v >= 0 && v <= 0xffff
	case isa.SlotShort:
		return v >= -1<<15 && v < 1<<15
	case isa.SlotInt, isa.SlotBranch:
		return v >= -1<<31 && v < 1<<31
	}
	return false
}

func appendSlot(b []byte, kind isa.SlotKind, v int64) []byte {
	switch kind.Width() {
	case 1:
		return append(b, byte(v))
	case 2:
		return binary.BigEndian.AppendUint16(b, uint16(v))
	default:
		return binary.BigEndian.AppendUint32(b, uint32(v))
	}
}

func readSlot(b []byte, kind isa.SlotKind) int64 {
	switch kind {
	case isa.SlotByte, isa.SlotLocal:
		return int64(b[0])
	case isa.SlotConst:
		return int64(binary.BigEndian.Uint16(b))
	case isa.SlotShort:
		return int64(int16(binary.BigEndian.Uint16(b)))
	default:
		return int64(int32(binary.BigEndian.Uint32(b)))
	}
}
