// Package codegen provides code generation helpers and constants.
package codegen

import (
	"strings"
	"unicode"
)

// Variable names used in generated code
const (
	StateName  = "state"
	SymbolName = "symbol"
	RuleName   = "rule"
	ValuesName = "values"
	ColumnName = "col"
)

// Suffixes appended to the automaton name to form generated identifiers.
const (
	StartSuffix      = "Start"
	NoneSuffix       = "None"
	RulesSuffix      = "Rules"
	RuleLengthSuffix = "RuleLength"
	StepSuffix       = "Step"
	AcceptsSuffix    = "Accepts"
	SatisfiedSuffix  = "Satisfied"
	ColumnSuffix     = "Column"
	NextSuffix       = "Next"
	AcceptSuffix     = "Accept"
)

// OpcodeName returns the constant name for an instruction mnemonic.
func OpcodeName(prefix, mnemonic string) string {
	return prefix + "Op" + Identifier(mnemonic)
}

// RuleConstName returns the constant name for a rule index.
func RuleConstName(prefix, rule string) string {
	return prefix + "Rule" + Identifier(rule)
}

// Identifier converts s to an exported CamelCase Go identifier fragment.
// Runs of characters that cannot appear in an identifier split words; the
// case inside a word is kept, so "POP" stays "POP" and "i32.add" becomes
// "I32Add".
func Identifier(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		b.WriteString(UpperFirst(word))
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

// IsIdentifier reports whether s is a valid Go identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// LowerFirst converts the first character of a string to lowercase.
func LowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}

// UpperFirst converts the first character of a string to uppercase.
func UpperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]&^0x20) + s[1:]
}
