// Package format renders schema and query ASTs back to Pyre source
// text, deterministically and derived solely from the AST so that
// parse(format(parse(s))) == parse(s) (§8).
package format

import (
	"fmt"
	"strconv"
	"strings"

	"pyreql/ast"
	"pyreql/typecheck"
)

const maxBlankRun = 2

// Schema renders a parsed schema back to source text, applying the
// canonical column order from the normalization pass before printing.
func Schema(s *ast.Schema) string {
	var b strings.Builder
	for i, def := range s.Definitions {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeDefinition(&b, def)
	}
	return b.String()
}

// Queries renders a parsed query list back to source text.
func Queries(ql *ast.QueryList) string {
	var b strings.Builder
	for i, q := range ql.Queries {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeQuery(&b, q)
	}
	return b.String()
}

func writeQuery(b *strings.Builder, q *ast.Query) {
	b.WriteString(q.Operation.String())
	b.WriteByte(' ')
	b.WriteString(q.Name)
	if len(q.Args) > 0 {
		b.WriteByte('(')
		for i, a := range q.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(a.Name)
			if a.Type != nil {
				b.WriteString(": ")
				b.WriteString(typeName(*a.Type))
			}
		}
		b.WriteByte(')')
	}
	b.WriteString(" {\n")
	for _, f := range q.Fields {
		writeTopField(b, f)
	}
	b.WriteString("}\n")
}

func writeTopField(b *strings.Builder, f ast.TopField) {
	switch v := f.(type) {
	case *ast.QueryField:
		b.WriteString("  ")
		writeQueryField(b, v, 1)
		b.WriteByte('\n')
	case *ast.Comment:
		fmt.Fprintf(b, "  %s\n", v.Text)
	case *ast.Lines:
		writeBlankRun(b, v.Count)
	}
}

func writeQueryField(b *strings.Builder, qf *ast.QueryField, indent int) {
	if qf.Alias != "" && qf.Alias != qf.TargetName {
		b.WriteString(qf.Alias)
		b.WriteString(": ")
	}
	b.WriteString(qf.TargetName)
	if qf.SetValue != nil {
		b.WriteString(" = ")
		b.WriteString(exprSource(qf.SetValue))
	}
	if len(qf.Args) == 0 {
		return
	}
	b.WriteString(" {\n")
	pad := strings.Repeat("  ", indent+1)
	for _, a := range qf.Args {
		writeArgField(b, a, indent+1, pad)
	}
	b.WriteString(strings.Repeat("  ", indent))
	b.WriteString("}")
}

func writeArgField(b *strings.Builder, a ast.ArgField, indent int, pad string) {
	switch v := a.(type) {
	case *ast.QueryField:
		b.WriteString(pad)
		writeQueryField(b, v, indent)
		b.WriteByte('\n')
	case *ast.WhereArg:
		fmt.Fprintf(b, "%s@where { %s }\n", pad, exprSource(v.Expr))
	case *ast.SortArg:
		dir := "asc"
		if v.Direction == ast.SortDesc {
			dir = "desc"
		}
		fmt.Fprintf(b, "%s@sort(%s, %s)\n", pad, v.Column, dir)
	case *ast.LimitArg:
		fmt.Fprintf(b, "%s@limit(%s)\n", pad, exprSource(v.Value))
	case *ast.OffsetArg:
		fmt.Fprintf(b, "%s@offset(%s)\n", pad, exprSource(v.Value))
	case *ast.Comment:
		fmt.Fprintf(b, "%s%s\n", pad, v.Text)
	case *ast.Lines:
		writeBlankRun(b, v.Count)
	}
}

func writeDefinition(b *strings.Builder, def ast.Definition) {
	switch d := def.(type) {
	case *ast.Record:
		writeRecord(b, d)
	case *ast.TaggedUnion:
		writeTaggedUnion(b, d)
	case *ast.Session:
		writeSession(b, d)
	case *ast.Comment:
		b.WriteString(d.Text)
		b.WriteByte('\n')
	case *ast.Lines:
		writeBlankRun(b, d.Count)
	}
}

func writeBlankRun(b *strings.Builder, count int) {
	n := count
	if n > maxBlankRun {
		n = maxBlankRun
	}
	for i := 0; i < n; i++ {
		b.WriteByte('\n')
	}
}

func writeRecord(b *strings.Builder, r *ast.Record) {
	fmt.Fprintf(b, "record %s {\n", r.Name)
	for _, f := range typecheck.CanonicalFields(r) {
		writeField(b, f, 1)
	}
	for _, f := range r.Fields {
		switch f.(type) {
		case *ast.Permissions, *ast.TableName, *ast.Watch:
			writeField(b, f, 1)
		}
	}
	b.WriteString("}\n")
}

func writeField(b *strings.Builder, f ast.Field, indent int) {
	pad := strings.Repeat("  ", indent)
	switch v := f.(type) {
	case *ast.Column:
		b.WriteString(pad)
		writeColumn(b, v)
		b.WriteByte('\n')
	case *ast.Link:
		b.WriteString(pad)
		writeLink(b, v)
		b.WriteByte('\n')
	case *ast.Permissions:
		b.WriteString(pad)
		writePermissions(b, v)
	case *ast.TableName:
		fmt.Fprintf(b, "%s@tablename %q\n", pad, v.Name)
	case *ast.Watch:
		fmt.Fprintf(b, "%s@watch\n", pad)
	case *ast.Comment:
		fmt.Fprintf(b, "%s%s\n", pad, v.Text)
	case *ast.Lines:
		writeBlankRun(b, v.Count)
	}
}

func writeColumn(b *strings.Builder, c *ast.Column) {
	b.WriteString(c.Name)
	b.WriteString(": ")
	b.WriteString(typeName(c.Type))
	if c.Nullable {
		b.WriteByte('?')
	}
	for _, d := range c.Directives {
		b.WriteByte(' ')
		writeDirective(b, d)
	}
}

func writeDirective(b *strings.Builder, d ast.ColumnDirective) {
	switch d.Kind {
	case ast.DirectiveID:
		b.WriteString("@id")
	case ast.DirectiveUnique:
		b.WriteString("@unique")
	case ast.DirectiveIndex:
		b.WriteString("@index")
	case ast.DirectiveDefault:
		b.WriteString("@default(")
		b.WriteString(exprSource(d.DefaultValue))
		b.WriteByte(')')
	}
}

func writeLink(b *strings.Builder, l *ast.Link) {
	b.WriteString(l.Name)
	if l.Nullable {
		b.WriteByte('?')
	}
	b.WriteString(" @link(")
	if l.LocalColumn != "" {
		b.WriteString(l.LocalColumn)
		b.WriteString(", ")
	}
	if l.ForeignSchema != "" {
		b.WriteString(l.ForeignSchema)
		b.WriteByte('.')
	}
	b.WriteString(l.ForeignTable)
	b.WriteByte('.')
	b.WriteString(l.ForeignField)
	b.WriteByte(')')
}

func writePermissions(b *strings.Builder, p *ast.Permissions) {
	b.WriteString("@permissions {\n")
	if p.Star != nil {
		fmt.Fprintf(b, "    %s\n", exprSource(*p.Star))
	}
	for _, r := range p.Rules {
		ops := make([]string, len(r.Operations))
		for i, op := range r.Operations {
			ops[i] = op.String()
			if op == ast.OpSelect {
				// Permission rules spell the select operation "select".
				ops[i] = "select"
			}
		}
		fmt.Fprintf(b, "    %s { %s }\n", strings.Join(ops, ", "), exprSource(r.Where))
	}
	b.WriteString("  }\n")
}

func writeTaggedUnion(b *strings.Builder, tu *ast.TaggedUnion) {
	fmt.Fprintf(b, "tagged %s {\n", tu.Name)
	for _, v := range tu.Variants {
		if len(v.Payload) == 0 {
			fmt.Fprintf(b, "  %s\n", v.Name)
			continue
		}
		fmt.Fprintf(b, "  %s {\n", v.Name)
		for _, c := range v.Payload {
			b.WriteString("    ")
			col := c
			writeColumn(b, &col)
			b.WriteByte('\n')
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
}

func writeSession(b *strings.Builder, s *ast.Session) {
	fmt.Fprintf(b, "session %s {\n", s.Name)
	for _, c := range s.Columns {
		b.WriteString("  ")
		col := c
		writeColumn(b, &col)
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
}

func typeName(t ast.Type) string {
	switch t.Kind {
	case ast.TypeInteger:
		return "Integer"
	case ast.TypeReal:
		return "Real"
	case ast.TypeText:
		return "Text"
	case ast.TypeBlob:
		return "Blob"
	case ast.TypeDate:
		return "Date"
	case ast.TypeDateTime:
		return "DateTime"
	case ast.TypeJsonB:
		return "JsonB"
	case ast.TypeVectorBlob:
		return fmt.Sprintf("VectorBlob{%s,%d}", t.VectorKind, t.VectorDim)
	case ast.TypeNamed:
		return t.Named
	default:
		return "?"
	}
}

// exprSource renders an expression back to Pyre surface syntax (not
// the SQL the sqlgen package produces — this is the other direction,
// AST back to source text).
func exprSource(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.AndExpr:
		return "{" + exprSource(v.Left) + " && " + exprSource(v.Right) + "}"
	case *ast.OrExpr:
		return "{" + exprSource(v.Left) + " || " + exprSource(v.Right) + "}"
	case *ast.Comparison:
		return columnSource(v.Column) + " " + operatorSource(v.Operator) + " " + exprSource(v.Value)
	case *ast.LiteralExpr:
		return literalSource(v)
	case *ast.VarExpr:
		if v.IsSession {
			return "Session." + v.SessionField
		}
		return "$" + v.Name
	case *ast.FuncCallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = exprSource(a)
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.VariantExpr:
		return v.Union + "." + v.Variant
	case *ast.ColumnRefExpr:
		return columnSource(v.Ref)
	default:
		return ""
	}
}

func columnSource(c ast.ColumnRef) string {
	if c.IsSession {
		return "Session." + c.Name
	}
	return c.Name
}

func operatorSource(op ast.Operator) string {
	return op.SQLSymbol()
}

func literalSource(lit *ast.LiteralExpr) string {
	switch lit.Kind {
	case ast.LiteralString:
		return strconv.Quote(lit.String)
	case ast.LiteralInt:
		return strconv.FormatInt(lit.Int, 10)
	case ast.LiteralFloat:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64)
	case ast.LiteralBool:
		if lit.Bool {
			return "True"
		}
		return "False"
	case ast.LiteralNull:
		return "Null"
	case ast.LiteralArray:
		parts := make([]string, len(lit.Array))
		for i, el := range lit.Array {
			parts[i] = exprSource(el)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}
