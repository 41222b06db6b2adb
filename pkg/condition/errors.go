package condition

import (
	"errors"
	"fmt"
)

var (
	// ErrLexical is matched by every [*LexicalError].
	ErrLexical = errors.New("lexical error")
	// ErrSyntax is matched by every [*SyntaxError].
	ErrSyntax = errors.New("syntax error")
	// ErrNoSuchCondition is matched by every [*NoSuchConditionError].
	ErrNoSuchCondition = errors.New("no such condition")
	// ErrInvalidValue is returned when a literal does not fit the attribute.
	ErrInvalidValue = errors.New("invalid value")
)

// LexicalError reports a character the [Lexer] cannot start a token with.
type LexicalError struct {
	Reason string
	Pos    int
	Char   rune
}

func (e *LexicalError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unexpected character"
	}

	return fmt.Sprintf("%v: %s %q at position %d", ErrLexical, reason, e.Char, e.Pos)
}

func (e *LexicalError) Unwrap() error {
	return ErrLexical
}

// SyntaxError reports a token that does not fit the grammar. A [TokenEOF]
// token means the expression ended early.
type SyntaxError struct {
	Token Token
}

func (e *SyntaxError) Error() string {
	if e.Token.Kind == TokenEOF {
		return fmt.Sprintf("%v: unexpected end of input", ErrSyntax)
	}

	return fmt.Sprintf("%v: unexpected token %s at position %d", ErrSyntax, e.Token, e.Token.Pos)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// NoSuchConditionError reports a comparison on an attribute that is not in
// the [Registry].
type NoSuchConditionError struct {
	Name string
	// Reserved is set for names that exist, but not as expression conditions.
	Reserved bool
}

func (e *NoSuchConditionError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("%v: %q is a strategy directive and cannot be used in an expression",
			ErrNoSuchCondition, e.Name)
	}

	return fmt.Sprintf("%v: %q", ErrNoSuchCondition, e.Name)
}

func (e *NoSuchConditionError) Unwrap() error {
	return ErrNoSuchCondition
}
