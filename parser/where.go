package parser

import "pyreql/ast"

// parseWhereBody parses the comma/newline-separated conjuncts inside an
// `@where { … }` block, folding them into a single AndExpr tree. Each
// conjunct may itself use `&&`/`||` with explicit `{…}` nesting — the
// surface grammar deliberately avoids precedence ambiguity (§4.2,
// Design Notes) by requiring braces around any mixed and/or group.
func (p *parser) parseWhereBody() (ast.Expr, error) {
	var result ast.Expr
	for {
		p.skipNewlines()
		if p.at(tokRBrace) || p.atEOF() {
			break
		}
		expr, err := p.parseWhereExpr()
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = expr
		} else {
			result = &ast.AndExpr{Left: result, Right: expr}
		}
		p.skipNewlines()
		if p.at(tokComma) {
			p.advance()
			continue
		}
		if p.at(tokRBrace) || p.atEOF() {
			break
		}
	}
	if result == nil {
		return nil, p.fail(ExpectingWhereExpr)
	}
	return result, nil
}

// parseWhereExpr parses one conjunct: a comparison, or a `{…}`-nested
// and/or group.
func (p *parser) parseWhereExpr() (ast.Expr, error) {
	if p.at(tokLBrace) {
		p.advance()
		left, err := p.parseWhereExpr()
		if err != nil {
			return nil, err
		}
		var groupOp tokenKind
		for p.at(tokAndAnd) || p.at(tokOrOr) {
			if groupOp != 0 && p.tok.kind != groupOp {
				// && and || mixed in one group need their own {…} nesting.
				return nil, p.fail(ExpectingWhereExpr)
			}
			groupOp = p.tok.kind
			isAnd := p.at(tokAndAnd)
			p.advance()
			p.skipNewlines()
			right, err := p.parseWhereExpr()
			if err != nil {
				return nil, err
			}
			if isAnd {
				left = &ast.AndExpr{Left: left, Right: right}
			} else {
				left = &ast.OrExpr{Left: left, Right: right}
			}
		}
		if _, err := p.expect(tokRBrace, ExpectingSymbol); err != nil {
			return nil, err
		}
		return left, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	colTok, isSession, err := p.parseComparisonColumn()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{
		Column:   ast.ColumnRef{Range: rangeOf(colTok), Name: colTok.text, IsSession: isSession},
		Operator: op,
		Value:    value,
	}, nil
}

// parseComparisonColumn parses a comparison's left-hand side: either a
// bare column name or a "Session.field" reference.
func (p *parser) parseComparisonColumn() (token, bool, error) {
	if p.at(tokTypeName) && p.tok.text == "Session" {
		p.advance()
		if _, err := p.expect(tokDot, ExpectingSymbol); err != nil {
			return token{}, false, err
		}
		fieldTok, err := p.parseIdentName(ExpectingWhereExpr)
		if err != nil {
			return token{}, false, err
		}
		return fieldTok, true, nil
	}
	nameTok, err := p.parseIdentName(ExpectingWhereExpr)
	if err != nil {
		return token{}, false, err
	}
	return nameTok, false, nil
}

func (p *parser) parseOperator() (ast.Operator, error) {
	switch p.tok.kind {
	case tokEquals:
		p.advance()
		return ast.OpEq, nil
	case tokNeq:
		p.advance()
		return ast.OpNeq, nil
	case tokLt:
		p.advance()
		return ast.OpLt, nil
	case tokGt:
		p.advance()
		return ast.OpGt, nil
	case tokLte:
		p.advance()
		return ast.OpLte, nil
	case tokGte:
		p.advance()
		return ast.OpGte, nil
	case tokIdent:
		switch p.tok.text {
		case "in":
			p.advance()
			return ast.OpIn, nil
		case "like":
			p.advance()
			return ast.OpLike, nil
		case "not":
			p.advance()
			if p.at(tokIdent) && p.tok.text == "in" {
				p.advance()
				return ast.OpNotIn, nil
			}
			if p.at(tokIdent) && p.tok.text == "like" {
				p.advance()
				return ast.OpNotLike, nil
			}
			return 0, p.fail(ExpectingWhereExpr)
		}
	}
	return 0, p.fail(ExpectingWhereExpr)
}
