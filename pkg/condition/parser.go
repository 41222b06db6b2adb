package condition

// Parse parses an expression into a tree.
//
// The grammar is:
//
//	statement  := expression EOF
//	expression := primary (("and" | "or") primary)*
//	primary    := "(" expression ")" | STRING relop (NUMBER | STRING)
//	relop      := "<" | ">" | "="
//
// `and` and `or` have equal precedence and fold to the left.
func Parse(src string, opts ...LexerOpt) (Node, error) {
	p := &parser{lx: NewLexer(src, opts...)}

	err := p.advance()
	if err != nil {
		return nil, err
	}

	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.tok.Kind != TokenEOF {
		return nil, &SyntaxError{Token: p.tok}
	}

	return root, nil
}

type parser struct {
	lx  *Lexer
	tok Token
}

func (p *parser) advance() error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}

	p.tok = tok

	return nil
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == TokenAnd || p.tok.Kind == TokenOr {
		op := And
		if p.tok.Kind == TokenOr {
			op = Or
		}

		err = p.advance()
		if err != nil {
			return nil, err
		}

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		left = &Binary{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.tok.Kind {
	case TokenLParen:
		err := p.advance()
		if err != nil {
			return nil, err
		}

		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if p.tok.Kind != TokenRParen {
			return nil, &SyntaxError{Token: p.tok}
		}

		err = p.advance()
		if err != nil {
			return nil, err
		}

		return &Group{Inner: inner}, nil

	case TokenString:
		return p.parseComparison()
	}

	return nil, &SyntaxError{Token: p.tok}
}

func (p *parser) parseComparison() (Node, error) {
	name := p.tok

	err := p.advance()
	if err != nil {
		return nil, err
	}

	op, ok := operatorFromToken(p.tok.Kind)
	if !ok {
		return nil, &SyntaxError{Token: p.tok}
	}

	err = p.advance()
	if err != nil {
		return nil, err
	}

	var value Literal

	switch p.tok.Kind {
	case TokenNumber:
		value = Literal{Text: p.tok.Text, Num: p.tok.Num, IsNumber: true}
	case TokenString:
		value = StringLiteral(p.tok.Text)
	default:
		return nil, &SyntaxError{Token: p.tok}
	}

	err = p.advance()
	if err != nil {
		return nil, err
	}

	return &Leaf{
		Spec: Spec{Name: name.Text, Op: op, Value: value},
		Pos:  name.Pos,
	}, nil
}
