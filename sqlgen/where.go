package sqlgen

import (
	"strconv"
	"strings"

	"pyreql/ast"
)

// renderWhere renders a where-expression tree verbatim (§4.4.3):
// operators translate to their SQL symbols, and/or trees parenthesize,
// identifiers are double-quoted, string literals single-quoted,
// variables emitted as "$name", session variables as "$session_field".
func renderWhere(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.AndExpr:
		return "(" + renderWhere(expr.Left) + " and " + renderWhere(expr.Right) + ")"
	case *ast.OrExpr:
		return "(" + renderWhere(expr.Left) + " or " + renderWhere(expr.Right) + ")"
	case *ast.Comparison:
		return renderColumnRef(expr.Column) + " " + expr.Operator.SQLSymbol() + " " + renderExpr(expr.Value)
	default:
		return renderExpr(e)
	}
}

func renderColumnRef(c ast.ColumnRef) string {
	if c.IsSession {
		return "$session_" + c.Name
	}
	return qident(c.Name)
}

// renderExpr renders a value expression (the right-hand side of a
// comparison, a `= expr` set value, a limit/offset bound, or a nested
// function argument).
func renderExpr(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.LiteralExpr:
		return renderLiteral(v)
	case *ast.VarExpr:
		if v.IsSession {
			return "$session_" + v.SessionField
		}
		return "$" + v.Name
	case *ast.FuncCallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = renderExpr(a)
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.VariantExpr:
		return "'" + v.Variant + "'"
	case *ast.ColumnRefExpr:
		return renderColumnRef(v.Ref)
	case *ast.AndExpr, *ast.OrExpr, *ast.Comparison:
		return renderWhere(v.(ast.Expr))
	default:
		return ""
	}
}

func renderLiteral(lit *ast.LiteralExpr) string {
	switch lit.Kind {
	case ast.LiteralString:
		return "'" + lit.String + "'"
	case ast.LiteralInt:
		return strconv.FormatInt(lit.Int, 10)
	case ast.LiteralFloat:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64)
	case ast.LiteralBool:
		if lit.Bool {
			return "1"
		}
		return "0"
	case ast.LiteralNull:
		return "null"
	case ast.LiteralArray:
		parts := make([]string, len(lit.Array))
		for i, el := range lit.Array {
			parts[i] = renderExpr(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "null"
	}
}

// renderOrderLimitOffset renders the trailing "order by … limit …
// offset …" clause for a select root field (§4.4.4): rendered only at
// the root, sorts compose in declaration order, omitted clauses omit
// their keyword.
func renderOrderLimitOffset(qf *ast.QueryField) string {
	var b strings.Builder
	if sorts := ast.GetSorts(qf); len(sorts) > 0 {
		parts := make([]string, len(sorts))
		for i, s := range sorts {
			dir := "asc"
			if s.Direction == ast.SortDesc {
				dir = "desc"
			}
			parts[i] = qident(s.Column) + " " + dir
		}
		b.WriteString(" order by " + strings.Join(parts, ", "))
	}
	if l := ast.GetLimit(qf); l != nil {
		b.WriteString(" limit " + renderExpr(l.Value))
	}
	if o := ast.GetOffset(qf); o != nil {
		b.WriteString(" offset " + renderExpr(o.Value))
	}
	return b.String()
}

func renderWhereClause(qf *ast.QueryField) string {
	w := ast.GetWhere(qf)
	if w == nil {
		return ""
	}
	return " where " + renderWhere(w.Expr)
}
