package condition

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits an expression into [Token]s. Tokens are produced on demand by
// [Lexer.Next]; a Lexer is consumed once and cannot be rewound.
type Lexer struct {
	err           error
	src           string
	pos           int
	caseSensitive bool
	done          bool
}

// LexerOpt configures a [Lexer].
type LexerOpt func(*Lexer)

// WithCaseSensitiveKeywords makes the lexer recognize only lowercase `and`
// and `or`. By default keywords are matched case-insensitively.
func WithCaseSensitiveKeywords(caseSensitive bool) LexerOpt {
	return func(l *Lexer) {
		l.caseSensitive = caseSensitive
	}
}

// NewLexer creates a new [Lexer] for src.
func NewLexer(src string, opts ...LexerOpt) *Lexer {
	l := &Lexer{src: src}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Next returns the next token. After the end of input it keeps returning a
// [TokenEOF] token, and after a [*LexicalError] it keeps returning that error.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}

	tok, err := l.scan()
	if err != nil {
		l.err = err
		return Token{}, err
	}

	return tok, nil
}

func (l *Lexer) scan() (Token, error) {
	l.skipSpace()

	if l.done || l.pos >= len(l.src) {
		l.done = true
		return Token{Kind: TokenEOF, Pos: len(l.src)}, nil
	}

	start := l.pos
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])

	switch {
	case r == '(':
		l.pos += size
		return Token{Kind: TokenLParen, Text: "(", Pos: start}, nil

	case r == ')':
		l.pos += size
		return Token{Kind: TokenRParen, Text: ")", Pos: start}, nil

	case r == '<':
		l.pos += size
		return Token{Kind: TokenLT, Text: "<", Pos: start}, nil

	case r == '>':
		l.pos += size
		return Token{Kind: TokenGT, Text: ">", Pos: start}, nil

	case r == '=':
		l.pos += size
		if strings.HasPrefix(l.src[l.pos:], "=") {
			l.pos++
		}

		return Token{Kind: TokenEQ, Text: l.src[start:l.pos], Pos: start}, nil

	case r == '"' || r == '\'':
		return l.scanQuoted(r)

	case r == '-' || isDigit(r) || l.fractionAt(l.pos):
		return l.scanNumber()

	case r == '_' || unicode.IsLetter(r):
		return l.scanIdent(), nil
	}

	return Token{}, &LexicalError{Char: r, Pos: start}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}

		l.pos += size
	}
}

func (l *Lexer) scanQuoted(quote rune) (Token, error) {
	start := l.pos
	l.pos++ // Opening quote.

	var sb strings.Builder

	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size

		switch r {
		case quote:
			return Token{Kind: TokenString, Text: sb.String(), Pos: start}, nil

		case '\\':
			if l.pos < len(l.src) {
				next, nextSize := utf8.DecodeRuneInString(l.src[l.pos:])
				l.pos += nextSize
				sb.WriteRune(next)
			}

		default:
			sb.WriteRune(r)
		}
	}

	return Token{}, &LexicalError{Char: quote, Pos: start, Reason: "unterminated string starting with"}
}

// scanNumber reads an optionally negative decimal. The integer part may be
// omitted, as in ".5" or "-.5".
func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
		if l.pos >= len(l.src) || !isDigit(rune(l.src[l.pos])) && !l.fractionAt(l.pos) {
			return Token{}, &LexicalError{Char: '-', Pos: start}
		}
	}

	l.skipDigits()

	if l.fractionAt(l.pos) {
		l.pos++
		l.skipDigits()
	}

	text := l.src[start:l.pos]

	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, &LexicalError{Char: rune(text[0]), Pos: start, Reason: "malformed number starting with"}
	}

	return Token{Kind: TokenNumber, Text: text, Num: n, Pos: start}, nil
}

// fractionAt reports whether a '.' followed by a digit starts at i.
func (l *Lexer) fractionAt(i int) bool {
	return i+1 < len(l.src) && l.src[i] == '.' && isDigit(rune(l.src[i+1]))
}

func (l *Lexer) skipDigits() {
	for l.pos < len(l.src) && isDigit(rune(l.src[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) scanIdent() Token {
	start := l.pos

	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentRune(r) {
			break
		}

		l.pos += size
	}

	text := l.src[start:l.pos]

	switch {
	case l.isKeyword(text, "and"):
		return Token{Kind: TokenAnd, Text: text, Pos: start}
	case l.isKeyword(text, "or"):
		return Token{Kind: TokenOr, Text: text, Pos: start}
	}

	return Token{Kind: TokenString, Text: text, Pos: start}
}

func (l *Lexer) isKeyword(text, keyword string) bool {
	if l.caseSensitive {
		return text == keyword
	}

	return strings.EqualFold(text, keyword)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
