package rules

import (
	"errors"
	"strings"
)

// Validation failures. All of them are fatal: they indicate a defect in the
// rule declarations, never a runtime condition.
var (
	ErrUndeclaredImmediate = errors.New("undeclared immediate in rewrite output")
	ErrUnbalancedStack     = errors.New("unbalanced stack effect")
	ErrDuplicateRule       = errors.New("duplicate rewrite rule")
	ErrSubsumedRule        = errors.New("subsumed rewrite rule")
	ErrPatternTooLong      = errors.New("rewrite pattern exceeds maximum length")
	ErrEmptyPattern        = errors.New("rewrite pattern is empty")
	ErrOperandCount        = errors.New("operand count does not match immediate slots")
	ErrUnknownSymbol       = errors.New("unknown instruction symbol")
	ErrEmptyBinding        = errors.New("empty immediate binding name")
)

// Error reports a validation failure together with the rules that caused it.
// Marker is a progress position inside the first rule's LHS, or -1.
type Error struct {
	Err    error
	Rules  []*Rule
	Marker int
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	for i, r := range e.Rules {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		marker := -1
		if i == 0 {
			marker = e.Marker
		}
		b.WriteString(r.Format(marker))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(err error, detail string, rules ...*Rule) *Error {
	return &Error{Err: err, Rules: rules, Marker: -1, Detail: detail}
}
