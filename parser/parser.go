package parser

import (
	"strconv"

	"pyreql/ast"
)

// parser holds the shared token-stream machinery used by both the
// schema grammar (schema.go) and the query grammar (query.go, where.go).
// lex is held by value (not pointer) so that "save := *p; ... ; *p = save"
// lookahead rollbacks — used to disambiguate the inline-link shorthand
// and the optional local-column name — restore the tokenizer's scan
// position too, not just the last-fetched token.
type parser struct {
	path string
	lex  lexer
	tok  token
}

func newParser(path, src string) *parser {
	p := &parser{path: path, lex: *newLexer(src)}
	p.tok = p.lex.next()
	return p
}

func (p *parser) advance() token {
	cur := p.tok
	p.tok = p.lex.next()
	return cur
}

func (p *parser) at(k tokenKind) bool { return p.tok.kind == k }

func (p *parser) atEOF() bool { return p.tok.kind == tokEOF && p.tok.text == "" }

func (p *parser) fail(exp Expecting) error {
	return &Error{Path: p.path, Location: p.tok.start, Expecting: exp}
}

func (p *parser) failDetail(exp Expecting, detail string) error {
	return &Error{Path: p.path, Location: p.tok.start, Expecting: exp, Detail: detail}
}

func (p *parser) expect(k tokenKind, exp Expecting) (token, error) {
	if p.tok.kind != k {
		return token{}, p.fail(exp)
	}
	return p.advance(), nil
}

// skipSeparatorsKeepingEphemera consumes any run of newline tokens and comments that
// act purely as field separators, returning the ast ephemera nodes that
// must be preserved (comments and blank-line runs of 2+ newlines).
func (p *parser) skipSeparatorsKeepingEphemera() []ast.Field {
	var out []ast.Field
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

func (p *parser) skipNewlines() {
	for p.at(tokNewlines) {
		p.advance()
	}
}

func rangeOf(t token) ast.Range {
	return ast.Range{Start: t.start, End: t.end}
}

func spanRange(start ast.Location, end ast.Location) ast.Range {
	return ast.Range{Start: start, End: end}
}

// parseIdentName consumes a lowercase/underscore-led identifier.
func (p *parser) parseIdentName(exp Expecting) (token, error) {
	if !p.at(tokIdent) {
		return token{}, p.fail(exp)
	}
	return p.advance(), nil
}

// parseTypeName consumes an uppercase-led identifier.
func (p *parser) parseTypeName(exp Expecting) (token, error) {
	if !p.at(tokTypeName) {
		return token{}, p.fail(exp)
	}
	return p.advance(), nil
}

// parseType parses a column's serialization type: a built-in keyword, a
// vector blob with kind/dim, or a named reference resolved later by the
// typechecker. Trailing "?" marks nullability, handled by the caller.
func (p *parser) parseType() (ast.Type, error) {
	name, err := p.parseTypeName(ExpectingTypeName)
	if err != nil {
		return ast.Type{}, err
	}
	rng := spanRange(name.start, name.end)

	switch name.text {
	case "Integer":
		return ast.Type{Range: rng, Kind: ast.TypeInteger}, nil
	case "Real":
		return ast.Type{Range: rng, Kind: ast.TypeReal}, nil
	case "Text":
		return ast.Type{Range: rng, Kind: ast.TypeText}, nil
	case "Blob":
		return ast.Type{Range: rng, Kind: ast.TypeBlob}, nil
	case "Date":
		return ast.Type{Range: rng, Kind: ast.TypeDate}, nil
	case "DateTime":
		return ast.Type{Range: rng, Kind: ast.TypeDateTime}, nil
	case "JsonB":
		return ast.Type{Range: rng, Kind: ast.TypeJsonB}, nil
	case "VectorBlob":
		if !p.at(tokLBrace) {
			return ast.Type{Range: rng, Kind: ast.TypeVectorBlob}, nil
		}
		p.advance()
		kindTok, err := p.parseTypeName(ExpectingTypeName)
		if err != nil {
			return ast.Type{}, err
		}
		if _, err := p.expect(tokComma, ExpectingSymbol); err != nil {
			return ast.Type{}, err
		}
		dimTok, err := p.expect(tokNumber, ExpectingNumber)
		if err != nil {
			return ast.Type{}, err
		}
		end, err := p.expect(tokRBrace, ExpectingSymbol)
		if err != nil {
			return ast.Type{}, err
		}
		dim, _ := strconv.Atoi(dimTok.text)
		return ast.Type{
			Range:      spanRange(name.start, end.end),
			Kind:       ast.TypeVectorBlob,
			VectorKind: kindTok.text,
			VectorDim:  dim,
		}, nil
	default:
		return ast.Type{Range: rng, Kind: ast.TypeNamed, Named: name.text}, nil
	}
}

// ParseSchema parses a schema.pyre file's contents into a Schema AST.
// namespace is derived by the caller from the file's path per §6.
func ParseSchema(path, namespace, source string) (*ast.Schema, error) {
	p := newParser(path, source)
	return p.parseSchemaFile(namespace)
}

// ParseQuery parses a query .pyre file's contents into a QueryList AST.
func ParseQuery(path, namespace, source string) (*ast.QueryList, error) {
	p := newParser(path, source)
	return p.parseQueryFile(namespace)
}
