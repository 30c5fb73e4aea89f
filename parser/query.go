package parser

import "pyreql/ast"

func (p *parser) parseQueryFile(namespace string) (*ast.QueryList, error) {
	list := &ast.QueryList{Path: p.path, Namespace: namespace}
	for {
		p.skipNewlines()
		for p.at(tokComment) {
			p.advance()
			p.skipNewlines()
		}
		if p.atEOF() {
			break
		}
		if !p.at(tokIdent) {
			return nil, p.fail(ExpectingPyreFile)
		}
		q, err := p.parseQueryDef()
		if err != nil {
			return nil, err
		}
		list.Queries = append(list.Queries, q)
	}
	return list, nil
}

func (p *parser) parseQueryDef() (*ast.Query, error) {
	kwTok := p.advance()
	var op ast.QueryOperation
	switch kwTok.text {
	case "query":
		op = ast.OpSelect
	case "insert":
		op = ast.OpInsert
	case "update":
		op = ast.OpUpdate
	case "delete":
		op = ast.OpDelete
	default:
		return nil, p.failDetail(ExpectingQueryName, kwTok.text)
	}

	nameTok, err := p.parseTypeName(ExpectingQueryName)
	if err != nil {
		return nil, err
	}
	q := &ast.Query{Operation: op, Name: nameTok.text}
	q.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)

	if p.at(tokLParen) {
		p.advance()
		for !p.at(tokRParen) {
			arg, err := p.parseArgument()
			if err != nil {
				return nil, err
			}
			q.Args = append(q.Args, arg)
			if p.at(tokComma) {
				p.advance()
			}
		}
		p.advance() // ')'
	}

	if _, err := p.expect(tokLBrace, ExpectingSymbol); err != nil {
		return nil, err
	}

	for {
		q.Fields = append(q.Fields, p.skipSeparatorsAsTopFields()...)
		if p.at(tokRBrace) {
			break
		}
		if p.atEOF() {
			return nil, p.fail(ExpectingSymbol)
		}
		qf, err := p.parseQueryField()
		if err != nil {
			return nil, err
		}
		q.Fields = append(q.Fields, qf)
	}
	end := p.advance()
	q.NameRange.Range = spanRange(kwTok.start, end.end)
	return q, nil
}

func (p *parser) skipSeparatorsAsTopFields() []ast.TopField {
	var out []ast.TopField
	for {
		switch {
		case p.at(tokNewlines):
			t := p.advance()
			if len(t.text) >= 2 {
				out = append(out, &ast.Lines{Range: rangeOf(t), Count: len(t.text)})
			}
		case p.at(tokComment):
			t := p.advance()
			out = append(out, &ast.Comment{Range: rangeOf(t), Text: t.text})
		default:
			return out
		}
	}
}

func (p *parser) parseArgument() (ast.Argument, error) {
	if _, err := p.expect(tokDollar, ExpectingParamDefinition); err != nil {
		return ast.Argument{}, err
	}
	nameTok, err := p.parseIdentName(ExpectingParamDefinition)
	if err != nil {
		return ast.Argument{}, err
	}
	arg := ast.Argument{Name: nameTok.text}
	arg.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)
	end := nameTok.end
	if p.at(tokColon) {
		p.advance()
		typ, err := p.parseType()
		if err != nil {
			return ast.Argument{}, &Error{Path: p.path, Location: p.tok.start, Expecting: ExpectingParamDefType}
		}
		arg.Type = &typ
		end = typ.Range.End
	}
	arg.NameRange.Range = spanRange(nameTok.start, end)
	return arg, nil
}

// parseQueryField parses "(alias:)? name (= expr)? ({ argfield* })?".
func (p *parser) parseQueryField() (*ast.QueryField, error) {
	firstTok, err := p.parseIdentName(ExpectingQueryField)
	if err != nil {
		return nil, err
	}
	qf := &ast.QueryField{}
	start := firstTok.start

	if p.at(tokColon) {
		p.advance()
		targetTok, err := p.parseIdentName(ExpectingQueryField)
		if err != nil {
			return nil, err
		}
		qf.Alias = firstTok.text
		qf.TargetName = targetTok.text
		qf.NameRange.NameRange = spanRange(targetTok.start, targetTok.end)
	} else {
		qf.TargetName = firstTok.text
		qf.NameRange.NameRange = spanRange(firstTok.start, firstTok.end)
	}

	end := p.tok.start
	if p.at(tokEquals) {
		p.advance()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		qf.SetValue = val
		end = p.tok.start
	}

	if p.at(tokLBrace) {
		p.advance()
		for {
			qf.Args = append(qf.Args, p.skipSeparatorsAsArgFields()...)
			if p.at(tokRBrace) {
				break
			}
			if p.atEOF() {
				return nil, p.fail(ExpectingSymbol)
			}
			af, err := p.parseArgField()
			if err != nil {
				return nil, err
			}
			qf.Args = append(qf.Args, af)
		}
		closeTok := p.advance()
		end = closeTok.end
	}

	qf.NameRange.Range = spanRange(start, end)
	return qf, nil
}

func (p *parser) skipSeparatorsAsArgFields() []ast.ArgField {
	var out []ast.ArgField
	for {
		switch {
		case p.at(tokNewlines):
			t := p.advance()
			if len(t.text) >= 2 {
				out = append(out, &ast.Lines{Range: rangeOf(t), Count: len(t.text)})
			}
		case p.at(tokComment):
			t := p.advance()
			out = append(out, &ast.Comment{Range: rangeOf(t), Text: t.text})
		default:
			return out
		}
	}
}

func (p *parser) parseArgField() (ast.ArgField, error) {
	if p.at(tokAt) {
		return p.parseQueryAtDirective()
	}
	if p.at(tokIdent) {
		return p.parseQueryField()
	}
	return nil, p.fail(ExpectingQueryField)
}

func (p *parser) parseQueryAtDirective() (ast.ArgField, error) {
	atTok := p.advance()
	nameTok, err := p.parseIdentName(ExpectingAtDirective)
	if err != nil {
		return nil, err
	}
	switch nameTok.text {
	case "where":
		if _, err := p.expect(tokLBrace, ExpectingAtDirective); err != nil {
			return nil, err
		}
		expr, err := p.parseWhereBody()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(tokRBrace, ExpectingSymbol)
		if err != nil {
			return nil, err
		}
		return &ast.WhereArg{Range: spanRange(atTok.start, end.end), Expr: expr}, nil

	case "sort":
		if _, err := p.expect(tokLParen, ExpectingAtDirective); err != nil {
			return nil, err
		}
		colTok, err := p.parseIdentName(ExpectingQueryField)
		if err != nil {
			return nil, err
		}
		dir := ast.SortAsc
		if p.at(tokComma) {
			p.advance()
			dirTok, err := p.parseIdentName(ExpectingQueryField)
			if err != nil {
				return nil, err
			}
			if dirTok.text == "desc" {
				dir = ast.SortDesc
			}
		}
		end, err := p.expect(tokRParen, ExpectingSymbol)
		if err != nil {
			return nil, err
		}
		return &ast.SortArg{Range: spanRange(atTok.start, end.end), Column: colTok.text, Direction: dir}, nil

	case "limit":
		if _, err := p.expect(tokLParen, ExpectingAtDirective); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(tokRParen, ExpectingSymbol)
		if err != nil {
			return nil, err
		}
		return &ast.LimitArg{Range: spanRange(atTok.start, end.end), Value: val}, nil

	case "offset":
		if _, err := p.expect(tokLParen, ExpectingAtDirective); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(tokRParen, ExpectingSymbol)
		if err != nil {
			return nil, err
		}
		return &ast.OffsetArg{Range: spanRange(atTok.start, end.end), Value: val}, nil

	default:
		return nil, p.failDetail(ExpectingAtDirective, nameTok.text)
	}
}
