package condition

import (
	"fmt"
	"strconv"
)

// TokenKind identifies the lexical class of a [Token].
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenString
	TokenNumber
	TokenAnd
	TokenOr
	TokenLT
	TokenGT
	TokenEQ
	TokenLParen
	TokenRParen
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:    "EOF",
	TokenString: "STRING",
	TokenNumber: "NUMBER",
	TokenAnd:    "AND",
	TokenOr:     "OR",
	TokenLT:     "LT",
	TokenGT:     "GT",
	TokenEQ:     "EQ",
	TokenLParen: "LPAREN",
	TokenRParen: "RPAREN",
}

func (k TokenKind) String() string {
	if s, ok := tokenKindNames[k]; ok {
		return s
	}

	return "TokenKind(" + strconv.Itoa(int(k)) + ")"
}

// Token is a single lexeme of an expression.
type Token struct {
	// Text is the literal text. For quoted strings it is the unquoted value.
	Text string
	Kind TokenKind
	// Num holds the parsed value of a [TokenNumber].
	Num float64
	// Pos is the byte offset of the token in the expression.
	Pos int
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return "end of input"
	}

	return fmt.Sprintf("%q", t.Text)
}

// Operator is a relational operator.
type Operator int

const (
	LT Operator = iota + 1
	GT
	EQ
)

func (op Operator) String() string {
	switch op {
	case LT:
		return "<"
	case GT:
		return ">"
	case EQ:
		return "="
	}

	return "Operator(" + strconv.Itoa(int(op)) + ")"
}

func operatorFromToken(k TokenKind) (Operator, bool) {
	switch k {
	case TokenLT:
		return LT, true
	case TokenGT:
		return GT, true
	case TokenEQ:
		return EQ, true
	}

	return 0, false
}

// CompareFloat reports whether a op b holds.
func (op Operator) CompareFloat(a, b float64) bool {
	switch op {
	case LT:
		return a < b
	case GT:
		return a > b
	case EQ:
		return a == b
	}

	return false
}

// CompareString reports whether a op b holds in lexical order.
func (op Operator) CompareString(a, b string) bool {
	switch op {
	case LT:
		return a < b
	case GT:
		return a > b
	case EQ:
		return a == b
	}

	return false
}

// Literal is the right-hand side of a comparison.
type Literal struct {
	Text     string
	Num      float64
	IsNumber bool
}

// NumberLiteral returns a numeric [Literal].
func NumberLiteral(n float64) Literal {
	return Literal{
		Text:     strconv.FormatFloat(n, 'f', -1, 64),
		Num:      n,
		IsNumber: true,
	}
}

// StringLiteral returns a string [Literal].
func StringLiteral(s string) Literal {
	return Literal{Text: s}
}

// Float returns the numeric value of the literal. Quoted numbers are
// accepted; any other string fails with [ErrInvalidValue].
func (l Literal) Float() (float64, error) {
	if l.IsNumber {
		return l.Num, nil
	}

	n, err := strconv.ParseFloat(l.Text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, l.Text)
	}

	return n, nil
}

func (l Literal) String() string {
	if l.IsNumber {
		return l.Text
	}

	return strconv.Quote(l.Text)
}

// Spec is a single comparison: attribute, operator and literal.
type Spec struct {
	Name  string
	Value Literal
	Op    Operator
}

func (s Spec) String() string {
	return s.Name + " " + s.Op.String() + " " + s.Value.String()
}
