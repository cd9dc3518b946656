// Package pattern parses the textual instruction sequences used in definition files.
package pattern

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

// OperandType indicates how an operand is written.
type OperandType int

const (
	// OperandWildcard is the '_' operand.
	OperandWildcard OperandType = iota
	// OperandBinding is a named immediate ($x or ${x}).
	OperandBinding
)

// Operand is one parsed immediate operand.
type Operand struct {
	Type OperandType
	Name string // For OperandBinding: the binding name without '$'
	Pos  int
}

// Instruction is one parsed instruction.
type Instruction struct {
	Name     string
	Operands []Operand
	Pos      int
}

// Sequence is a fully parsed instruction sequence.
type Sequence struct {
	Original     string
	Instructions []Instruction
}

var errSyntax = errors.New("pattern syntax")

// Parse parses an instruction sequence.
// Syntax:
//   - instructions are separated by ';' or newlines
//   - an instruction is a mnemonic followed by its operands
//   - $name or ${name}: immediate binding
//   - _: wildcard immediate
//   - operands may be separated by whitespace or commas
//   - '#' starts a comment running to the end of the line
//
// An empty or blank string is the empty sequence.
func Parse(src string) (*Sequence, error) {
	result := &Sequence{
		Original:     src,
		Instructions: make([]Instruction, 0),
	}

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ';' || c == '\n' || c == ' ' || c == '\t' || c == '\r':
			i++

		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case c >= utf8.RuneSelf || isNameStart(rune(c)):
			if r, _ := utf8.DecodeRuneInString(src[i:]); !isNameStart(r) {
				return nil, fmt.Errorf("%w: at position %d: unexpected %q", errSyntax, i, r)
			}
			inst, consumed, err := parseInstruction(src[i:], i)
			if err != nil {
				return nil, err
			}
			result.Instructions = append(result.Instructions, inst)
			i += consumed

		default:
			return nil, fmt.Errorf("%w: at position %d: unexpected %q", errSyntax, i, c)
		}
	}

	return result, nil
}

// parseInstruction parses one instruction starting at a mnemonic. base is
// the position of s[0] in the whole source.
func parseInstruction(s string, base int) (Instruction, int, error) {
	_, end := utf8.DecodeRuneInString(s)
	end += nameLen(s[end:], false)
	inst := Instruction{Name: s[:end], Pos: base}

	i := end
	for i < len(s) {
		c := s[i]
		switch {
		case c == ';' || c == '\n' || c == '#':
			return inst, i, nil

		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			i++

		case c == '_' && nameLen(s[i+1:], false) == 0:
			inst.Operands = append(inst.Operands, Operand{Type: OperandWildcard, Pos: base + i})
			i++

		case c == '$':
			op, consumed, err := parseBinding(s[i:], base+i)
			if err != nil {
				return Instruction{}, 0, err
			}
			inst.Operands = append(inst.Operands, op)
			i += consumed

		default:
			r, _ := utf8.DecodeRuneInString(s[i:])
			return Instruction{}, 0, fmt.Errorf("%w: at position %d: operand of %s must be $name or _, found %q",
				errSyntax, base+i, inst.Name, r)
		}
	}
	return inst, i, nil
}

// parseBinding parses $name or ${name} starting at s[0]='$'.
func parseBinding(s string, pos int) (Operand, int, error) {
	if len(s) > 1 && s[1] == '{' {
		closeIdx := strings.IndexByte(s, '}')
		if closeIdx == -1 {
			return Operand{}, 0, fmt.Errorf("%w: at position %d: unclosed ${", errSyntax, pos)
		}
		content := s[2:closeIdx]
		if !isValidIdentifier(content) {
			return Operand{}, 0, fmt.Errorf("%w: at position %d: invalid binding name ${%s}", errSyntax, pos, content)
		}
		return Operand{Type: OperandBinding, Name: content, Pos: pos}, closeIdx + 1, nil
	}

	end := 1 + nameLen(s[1:], true)
	name := s[1:end]
	if name == "" {
		return Operand{}, 0, fmt.Errorf("%w: at position %d: %w", errSyntax, pos, rules.ErrEmptyBinding)
	}
	if !isValidIdentifier(name) {
		return Operand{}, 0, fmt.Errorf("%w: at position %d: invalid binding name $%s", errSyntax, pos, name)
	}
	return Operand{Type: OperandBinding, Name: name, Pos: pos}, end, nil
}

// Resolve looks every mnemonic up in cat.
func (s *Sequence) Resolve(cat *isa.Catalog) ([]rules.Pattern, error) {
	var out []rules.Pattern
	for _, inst := range s.Instructions {
		sym, ok := cat.Lookup(inst.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s at position %d", rules.ErrUnknownSymbol, inst.Name, inst.Pos)
		}
		var ops []string
		for _, op := range inst.Operands {
			if op.Type == OperandWildcard {
				ops = append(ops, rules.Wildcard)
			} else {
				ops = append(ops, op.Name)
			}
		}
		out = append(out, rules.P(sym, ops...))
	}
	return out, nil
}

// ParseRule parses both sides of a rule against cat.
func ParseRule(cat *isa.Catalog, name, match, rewrite string) (rules.Raw, error) {
	lhs, err := parseSide(cat, match)
	if err != nil {
		return rules.Raw{}, fmt.Errorf("rule %q match: %w", name, err)
	}
	rhs, err := parseSide(cat, rewrite)
	if err != nil {
		return rules.Raw{}, fmt.Errorf("rule %q rewrite: %w", name, err)
	}
	return rules.Raw{Name: name, LHS: lhs, RHS: rhs}, nil
}

func parseSide(cat *isa.Catalog, src string) ([]rules.Pattern, error) {
	seq, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return seq.Resolve(cat)
}

// Format writes patterns back in the syntax Parse accepts.
func Format(patterns []rules.Pattern) string {
	var b strings.Builder
	for i, p := range patterns {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(p.Symbol.Name)
		for _, op := range p.Operands {
			b.WriteByte(' ')
			if op == rules.Wildcard {
				b.WriteString(op)
			} else {
				b.WriteByte('$')
				b.WriteString(op)
			}
		}
	}
	return b.String()
}

// nameLen returns the byte length of the run of name characters at the start
// of s. Dots end the run when stopAtDot is set.
func nameLen(s string, stopAtDot bool) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !isNameContinue(r) || (stopAtDot && r == '.') {
			break
		}
		n += size
	}
	return n
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameContinue(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isValidIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !isNameStart(r) {
				return false
			}
		} else if r == '.' || !isNameContinue(r) {
			return false
		}
	}
	return true
}
