package parser

import (
	"strconv"
	"strings"

	"pyreql/ast"
)

func (p *parser) parseSchemaFile(namespace string) (*ast.Schema, error) {
	schema := &ast.Schema{Path: p.path, Namespace: namespace}

	for {
		schema.Definitions = append(schema.Definitions, p.skipSeparatorsKeepingEphemeraAsDefs()...)
		if p.atEOF() {
			break
		}

		if !p.at(tokIdent) {
			return nil, p.fail(ExpectingSchemaDefinition)
		}

		switch p.tok.text {
		case "record":
			p.advance()
			rec, err := p.parseRecord()
			if err != nil {
				return nil, err
			}
			schema.Definitions = append(schema.Definitions, rec)
		case "tagged":
			p.advance()
			tu, err := p.parseTaggedUnion()
			if err != nil {
				return nil, err
			}
			schema.Definitions = append(schema.Definitions, tu)
		case "session":
			p.advance()
			sess, err := p.parseSession()
			if err != nil {
				return nil, err
			}
			schema.Definitions = append(schema.Definitions, sess)
		default:
			return nil, p.fail(ExpectingSchemaDefinition)
		}
	}

	return schema, nil
}

func (p *parser) skipSeparatorsKeepingEphemeraAsDefs() []ast.Definition {
	var out []ast.Definition
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

func (p *parser) parseRecord() (*ast.Record, error) {
	nameTok, err := p.parseTypeName(ExpectingRecordName)
	if err != nil {
		return nil, err
	}
	start := nameTok.start
	nameRange := spanRange(nameTok.start, nameTok.end)

	if _, err := p.expect(tokLBrace, ExpectingSymbol); err != nil {
		return nil, err
	}

	rec := &ast.Record{Name: nameTok.text}
	rec.NameRange.NameRange = nameRange

	for {
		rec.Fields = append(rec.Fields, p.skipSeparatorsKeepingEphemera()...)
		if p.at(tokRBrace) {
			break
		}
		if p.atEOF() {
			return nil, p.fail(ExpectingSymbol)
		}

		field, err := p.parseRecordField()
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)
	}
	end := p.advance() // closing brace
	rec.NameRange.Range = spanRange(start, end.end)
	return rec, nil
}

func (p *parser) parseRecordField() (ast.Field, error) {
	if p.at(tokAt) {
		return p.parseAtField()
	}
	if p.at(tokIdent) {
		nameTok := p.advance()
		// Inline link shorthand: "name(?) @link(local_id?, Schema.Table.field)".
		// The trailing '?' here marks the implicit local column nullable,
		// since the inline form has no separate column declaration to
		// carry that flag.
		nullable := false
		if p.at(tokQuestion) {
			p.advance()
			nullable = true
		}
		if p.at(tokAt) {
			atTok := p.advance()
			linkKw, err := p.parseIdentName(ExpectingSchemaAtDirective)
			if err != nil {
				return nil, err
			}
			if linkKw.text != "link" {
				return nil, p.failDetail(ExpectingSchemaAtDirective, linkKw.text)
			}
			link, err := p.parseInlineLink(nameTok, atTok)
			if err != nil {
				return nil, err
			}
			link.Nullable = nullable
			return link, nil
		}
		if nullable {
			return nil, p.fail(ExpectingSchemaColumn)
		}
		return p.parseColumn(nameTok)
	}
	return nil, p.fail(ExpectingSchemaColumn)
}

func (p *parser) parseAtField() (ast.Field, error) {
	atTok := p.advance() // '@'
	name, err := p.parseIdentName(ExpectingSchemaAtDirective)
	if err != nil {
		return nil, err
	}
	switch name.text {
	case "link":
		return p.parseLinkDirective(atTok)
	case "tablename":
		return p.parseTablenameDirective(atTok)
	case "watch":
		return &ast.Watch{Range: spanRange(atTok.start, name.end)}, nil
	case "permissions":
		return p.parsePermissionsBlock(atTok)
	default:
		return nil, p.failDetail(ExpectingSchemaAtDirective, name.text)
	}
}

// parseLinkDirective parses the standalone `@link name { from: local_id, to: Table.foreign_id }`
// form. The inline column form (`name @link(local_id?, Schema.Table.field)`) is
// parsed by parseInlineLink instead.
func (p *parser) parseLinkDirective(atTok token) (*ast.Link, error) {
	nameTok, err := p.parseIdentName(ExpectingFieldName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, ExpectingLinkDirective); err != nil {
		return nil, err
	}

	link := &ast.Link{Name: nameTok.text}
	link.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)

	for !p.at(tokRBrace) {
		p.skipNewlines()
		if p.at(tokRBrace) {
			break
		}
		keyTok, err := p.parseIdentName(ExpectingLinkDirective)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, ExpectingSymbol); err != nil {
			return nil, err
		}
		switch keyTok.text {
		case "from":
			v, err := p.parseIdentName(ExpectingFieldName)
			if err != nil {
				return nil, err
			}
			link.LocalColumn = v.text
		case "to":
			schemaName, table, field, err := p.parseQualifiedTarget()
			if err != nil {
				return nil, err
			}
			link.ForeignSchema, link.ForeignTable, link.ForeignField = schemaName, table, field
		default:
			return nil, p.failDetail(ExpectingLinkDirective, keyTok.text)
		}
		if p.at(tokComma) {
			p.advance()
		}
		p.skipNewlines()
	}
	end := p.advance()
	link.NameRange.Range = spanRange(atTok.start, end.end)
	return link, nil
}

// parseQualifiedTarget parses "Schema.Table.field" or "Table.field" (the
// default namespace is filled in by the typechecker when the schema
// qualifier is omitted). The schema qualifier is a namespace name and may
// be lowercase, e.g. "default.User.id".
func (p *parser) parseQualifiedTarget() (schemaName, table, field string, err error) {
	if !p.at(tokTypeName) && !p.at(tokIdent) {
		return "", "", "", p.fail(ExpectingTypeName)
	}
	first := p.advance()
	if _, err := p.expect(tokDot, ExpectingSymbol); err != nil {
		return "", "", "", err
	}
	if first.kind == tokTypeName && p.at(tokIdent) {
		// Two-part form: Table.field, default namespace.
		fieldTok := p.advance()
		return "", first.text, fieldTok.text, nil
	}
	second, err := p.parseTypeName(ExpectingTypeName)
	if err != nil {
		return "", "", "", err
	}
	if _, err := p.expect(tokDot, ExpectingSymbol); err != nil {
		return "", "", "", err
	}
	fieldTok, err := p.parseIdentName(ExpectingFieldName)
	if err != nil {
		return "", "", "", err
	}
	return first.text, second.text, fieldTok.text, nil
}

func (p *parser) parseTablenameDirective(atTok token) (*ast.TableName, error) {
	strTok, err := p.expect(tokString, ExpectingString)
	if err != nil {
		return nil, err
	}
	return &ast.TableName{Range: spanRange(atTok.start, strTok.end), Name: strTok.text}, nil
}

func (p *parser) parsePermissionsBlock(atTok token) (*ast.Permissions, error) {
	if _, err := p.expect(tokLBrace, ExpectingPermissionsBlock); err != nil {
		return nil, err
	}
	p.skipNewlines()

	// Disambiguate: a rule list starts each entry with one or more
	// operation keywords followed by '{'; a star permission is a bare
	// where-expression.
	if p.at(tokIdent) && isOperationKeyword(p.tok.text) {
		block := &ast.Permissions{}
		for !p.at(tokRBrace) {
			p.skipNewlines()
			if p.at(tokRBrace) {
				break
			}
			rule, err := p.parsePermissionRule()
			if err != nil {
				return nil, err
			}
			block.Rules = append(block.Rules, rule)
			p.skipNewlines()
		}
		end := p.advance()
		block.Range = spanRange(atTok.start, end.end)
		return block, nil
	}

	expr, err := p.parseWhereBody()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(tokRBrace, ExpectingSymbol)
	if err != nil {
		return nil, err
	}
	return &ast.Permissions{Range: spanRange(atTok.start, end.end), Star: &expr}, nil
}

func isOperationKeyword(s string) bool {
	switch s {
	case "select", "insert", "update", "delete":
		return true
	default:
		return false
	}
}

func (p *parser) parsePermissionRule() (ast.PermissionRule, error) {
	startTok := p.tok
	var ops []ast.QueryOperation
	for {
		opTok, err := p.parseIdentName(ExpectingPermissionsBlock)
		if err != nil {
			return ast.PermissionRule{}, err
		}
		ops = append(ops, operationFromKeyword(opTok.text))
		if p.at(tokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokLBrace, ExpectingPermissionsBlock); err != nil {
		return ast.PermissionRule{}, err
	}
	expr, err := p.parseWhereBody()
	if err != nil {
		return ast.PermissionRule{}, err
	}
	end, err := p.expect(tokRBrace, ExpectingSymbol)
	if err != nil {
		return ast.PermissionRule{}, err
	}
	return ast.PermissionRule{Range: spanRange(startTok.start, end.end), Operations: ops, Where: expr}, nil
}

func operationFromKeyword(s string) ast.QueryOperation {
	switch s {
	case "insert":
		return ast.OpInsert
	case "update":
		return ast.OpUpdate
	case "delete":
		return ast.OpDelete
	default:
		return ast.OpSelect
	}
}

// parseColumn parses a column's ": Type(?)( @directive)*" tail; nameTok
// (the already-consumed field name) is supplied by the caller since
// distinguishing a column from an inline link requires one token of
// lookahead past the name.
func (p *parser) parseColumn(nameTok token) (*ast.Column, error) {
	col := &ast.Column{Name: nameTok.text}
	col.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)

	if _, err := p.expect(tokColon, ExpectingSchemaColumn); err != nil {
		return nil, err
	}

	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	col.Type = typ

	if p.at(tokQuestion) {
		p.advance()
		col.Nullable = true
	}

	for p.at(tokAt) {
		dir, err := p.parseColumnDirective()
		if err != nil {
			return nil, err
		}
		col.Directives = append(col.Directives, dir)
	}

	end := p.tok.start
	col.NameRange.Range = spanRange(nameTok.start, end)
	return col, nil
}

func (p *parser) parseInlineLink(nameTok, atTok token) (*ast.Link, error) {
	if _, err := p.expect(tokLParen, ExpectingLinkDirective); err != nil {
		return nil, err
	}
	link := &ast.Link{Name: nameTok.text}
	link.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)

	// Optional explicit local column name, distinguished from the
	// qualified target by lookahead: a lowercase ident followed by ','.
	if p.at(tokIdent) {
		save := *p
		localTok := p.advance()
		if p.at(tokComma) {
			p.advance()
			link.LocalColumn = localTok.text
		} else {
			*p = save
		}
	}

	schemaName, table, field, err := p.parseQualifiedTarget()
	if err != nil {
		return nil, err
	}
	link.ForeignSchema, link.ForeignTable, link.ForeignField = schemaName, table, field

	end, err := p.expect(tokRParen, ExpectingSymbol)
	if err != nil {
		return nil, err
	}
	link.NameRange.Range = spanRange(nameTok.start, end.end)
	return link, nil
}

func (p *parser) parseColumnDirective() (ast.ColumnDirective, error) {
	atTok := p.advance()
	nameTok, err := p.parseIdentName(ExpectingSchemaAtDirective)
	if err != nil {
		return ast.ColumnDirective{}, err
	}
	switch nameTok.text {
	case "id":
		return ast.ColumnDirective{Range: spanRange(atTok.start, nameTok.end), Kind: ast.DirectiveID}, nil
	case "unique":
		return ast.ColumnDirective{Range: spanRange(atTok.start, nameTok.end), Kind: ast.DirectiveUnique}, nil
	case "index":
		return ast.ColumnDirective{Range: spanRange(atTok.start, nameTok.end), Kind: ast.DirectiveIndex}, nil
	case "default":
		if _, err := p.expect(tokLParen, ExpectingSymbol); err != nil {
			return ast.ColumnDirective{}, err
		}
		var val ast.Expr
		if p.at(tokIdent) && p.tok.text == "now" {
			t := p.advance()
			val = &ast.FuncCallExpr{Range: spanRange(t.start, t.end), Name: "now"}
		} else {
			v, err := p.parseValue()
			if err != nil {
				return ast.ColumnDirective{}, err
			}
			val = v
		}
		end, err := p.expect(tokRParen, ExpectingSymbol)
		if err != nil {
			return ast.ColumnDirective{}, err
		}
		return ast.ColumnDirective{Range: spanRange(atTok.start, end.end), Kind: ast.DirectiveDefault, DefaultValue: val}, nil
	default:
		return ast.ColumnDirective{}, p.failDetail(ExpectingSchemaAtDirective, nameTok.text)
	}
}

func (p *parser) parseTaggedUnion() (*ast.TaggedUnion, error) {
	nameTok, err := p.parseTypeName(ExpectingRecordName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, ExpectingSymbol); err != nil {
		return nil, err
	}
	tu := &ast.TaggedUnion{Name: nameTok.text}
	tu.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)

	for {
		p.skipNewlines()
		if p.at(tokRBrace) {
			break
		}
		variantTok, err := p.parseTypeName(ExpectingTaggedUnionVariant)
		if err != nil {
			return nil, err
		}
		variant := ast.Variant{Name: variantTok.text}
		variant.NameRange.NameRange = spanRange(variantTok.start, variantTok.end)
		end := variantTok.end
		if p.at(tokLBrace) {
			p.advance()
			for {
				p.skipNewlines()
				if p.at(tokRBrace) {
					break
				}
				fieldNameTok, err := p.parseIdentName(ExpectingFieldName)
				if err != nil {
					return nil, err
				}
				col, err := p.parseColumn(fieldNameTok)
				if err != nil {
					return nil, err
				}
				variant.Payload = append(variant.Payload, *col)
			}
			closeTok := p.advance()
			end = closeTok.end
		}
		variant.NameRange.Range = spanRange(variantTok.start, end)
		tu.Variants = append(tu.Variants, variant)
	}
	end := p.advance()
	tu.NameRange.Range = spanRange(nameTok.start, end.end)
	return tu, nil
}

func (p *parser) parseSession() (*ast.Session, error) {
	nameTok, err := p.parseTypeName(ExpectingRecordName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, ExpectingSymbol); err != nil {
		return nil, err
	}
	sess := &ast.Session{Name: nameTok.text}
	sess.NameRange.NameRange = spanRange(nameTok.start, nameTok.end)
	for {
		p.skipNewlines()
		if p.at(tokRBrace) {
			break
		}
		fieldNameTok, err := p.parseIdentName(ExpectingFieldName)
		if err != nil {
			return nil, err
		}
		col, err := p.parseColumn(fieldNameTok)
		if err != nil {
			return nil, err
		}
		sess.Columns = append(sess.Columns, *col)
	}
	end := p.advance()
	sess.NameRange.Range = spanRange(nameTok.start, end.end)
	return sess, nil
}

// parseValue parses a literal, variable, session reference, tagged
// variant, or function call — the Value grammar shared by column
// defaults and where-expressions.
func (p *parser) parseValue() (ast.Expr, error) {
	switch {
	case p.at(tokDollar):
		atTok := p.advance()
		nameTok, err := p.parseIdentName(ExpectingValue)
		if err != nil {
			return nil, err
		}
		return &ast.VarExpr{Range: spanRange(atTok.start, nameTok.end), Name: nameTok.text}, nil

	case p.at(tokString):
		t := p.advance()
		return &ast.LiteralExpr{Range: rangeOf(t), Kind: ast.LiteralString, String: t.text}, nil

	case p.at(tokNumber):
		t := p.advance()
		if strings.Contains(t.text, ".") {
			f, _ := strconv.ParseFloat(t.text, 64)
			return &ast.LiteralExpr{Range: rangeOf(t), Kind: ast.LiteralFloat, Float: f}, nil
		}
		i, _ := strconv.ParseInt(t.text, 10, 64)
		return &ast.LiteralExpr{Range: rangeOf(t), Kind: ast.LiteralInt, Int: i}, nil

	case p.at(tokLBrace):
		start := p.advance()
		var items []ast.Expr
		for !p.at(tokRBrace) {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
			if p.at(tokComma) {
				p.advance()
			}
		}
		end := p.advance()
		return &ast.LiteralExpr{Range: spanRange(start.start, end.end), Kind: ast.LiteralArray, Array: items}, nil

	case p.at(tokTypeName):
		first := p.advance()
		if first.text == "Session" {
			if _, err := p.expect(tokDot, ExpectingSymbol); err != nil {
				return nil, err
			}
			fieldTok, err := p.parseIdentName(ExpectingValue)
			if err != nil {
				return nil, err
			}
			return &ast.VarExpr{
				Range:        spanRange(first.start, fieldTok.end),
				IsSession:    true,
				SessionField: fieldTok.text,
			}, nil
		}
		if first.text == "True" || first.text == "False" {
			return &ast.LiteralExpr{Range: rangeOf(first), Kind: ast.LiteralBool, Bool: first.text == "True"}, nil
		}
		if first.text == "Null" {
			return &ast.LiteralExpr{Range: rangeOf(first), Kind: ast.LiteralNull}, nil
		}
		// Tagged variant literal: Union.Variant
		if _, err := p.expect(tokDot, ExpectingSymbol); err != nil {
			return nil, err
		}
		variantTok, err := p.parseTypeName(ExpectingValue)
		if err != nil {
			return nil, err
		}
		return &ast.VariantExpr{Range: spanRange(first.start, variantTok.end), Union: first.text, Variant: variantTok.text}, nil

	case p.at(tokIdent):
		nameTok := p.advance()
		if p.at(tokLParen) {
			p.advance()
			var args []ast.Expr
			for !p.at(tokRParen) {
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				args = append(args, v)
				if p.at(tokComma) {
					p.advance()
				}
			}
			end := p.advance()
			return &ast.FuncCallExpr{Range: spanRange(nameTok.start, end.end), Name: nameTok.text, Args: args}, nil
		}
		// Bare identifier: column reference (used in where-expression
		// right-hand sides for column-to-column comparisons).
		return &ast.ColumnRefExpr{Range: rangeOf(nameTok), Ref: ast.ColumnRef{Range: rangeOf(nameTok), Name: nameTok.text}}, nil

	default:
		return nil, p.fail(ExpectingValue)
	}
}
