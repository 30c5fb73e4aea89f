// Package permission evaluates a where-like boolean expression against
// a concrete row and session, and groups affected rows by the set of
// sessions allowed to observe them.
package permission

import (
	"pyreql/ast"
)

// Row is a mutated row's column values, keyed by column name.
type Row map[string]any

// Session is one connected session's field values, keyed by field name.
type Session map[string]any

// Evaluate reports whether where passes against row and session. It is
// total: every well-typed where-expression returns a boolean for any
// row and session (§8).
func Evaluate(where ast.Expr, row Row, session Session) bool {
	switch e := where.(type) {
	case *ast.AndExpr:
		return Evaluate(e.Left, row, session) && Evaluate(e.Right, row, session)
	case *ast.OrExpr:
		return Evaluate(e.Left, row, session) || Evaluate(e.Right, row, session)
	case *ast.Comparison:
		// A column or Session.field operand whose key is absent from the
		// row or session makes the comparison false; a key that is present
		// with a nil value is a null.
		source := map[string]any(row)
		if e.Column.IsSession {
			source = map[string]any(session)
		}
		if _, ok := source[e.Column.Name]; !ok {
			return false
		}
		if v, ok := e.Value.(*ast.VarExpr); ok && v.IsSession {
			if _, ok := session[v.SessionField]; !ok {
				return false
			}
		}
		left := columnValue(e.Column, row, session)
		right := resolveValue(e.Value, row, session)
		return compare(left, e.Operator, right)
	default:
		return false
	}
}

func columnValue(c ast.ColumnRef, row Row, session Session) any {
	if c.IsSession {
		return session[c.Name]
	}
	return row[c.Name]
}

func resolveValue(e ast.Expr, row Row, session Session) any {
	switch v := e.(type) {
	case *ast.LiteralExpr:
		return literalValue(v)
	case *ast.VarExpr:
		if v.IsSession {
			return session[v.SessionField]
		}
		return nil // unbound query argument: callers substitute before evaluating
	case *ast.ColumnRefExpr:
		return columnValue(v.Ref, row, session)
	case *ast.VariantExpr:
		return v.Variant
	default:
		return nil
	}
}

func literalValue(lit *ast.LiteralExpr) any {
	switch lit.Kind {
	case ast.LiteralString:
		return lit.String
	case ast.LiteralInt:
		return lit.Int
	case ast.LiteralFloat:
		return lit.Float
	case ast.LiteralBool:
		return lit.Bool
	case ast.LiteralNull:
		return nil
	case ast.LiteralArray:
		out := make([]any, len(lit.Array))
		for i, el := range lit.Array {
			out[i] = resolveValue(el, nil, nil)
		}
		return out
	default:
		return nil
	}
}

func compare(left any, op ast.Operator, right any) bool {
	switch op {
	case ast.OpEq:
		return equal(left, right)
	case ast.OpNeq:
		if left == nil || right == nil {
			return false
		}
		return !equal(left, right)
	case ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
		return ordered(left, op, right)
	case ast.OpIn, ast.OpNotIn:
		arr, ok := right.([]any)
		if !ok {
			return false
		}
		found := false
		for _, v := range arr {
			if equal(left, v) {
				found = true
				break
			}
		}
		if op == ast.OpIn {
			return found
		}
		return !found
	case ast.OpLike, ast.OpNotLike:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return false
		}
		matched := likeMatch(ls, rs)
		if op == ast.OpLike {
			return matched
		}
		return !matched
	default:
		return false
	}
}

// equal treats JSON booleans and numbers the way SQLite does: true==1,
// false==0, and numerically equal ints/floats compare equal regardless
// of Go type.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		return as == bs
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ordered compares numerically when both sides parse as numbers,
// lexicographically when both are strings, else returns false (§4.6).
func ordered(a any, op ast.Operator, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return orderedNumeric(af, op, bf)
		}
	}
	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		return orderedString(as, op, bs)
	}
	return false
}

func orderedNumeric(a float64, op ast.Operator, b float64) bool {
	switch op {
	case ast.OpLt:
		return a < b
	case ast.OpGt:
		return a > b
	case ast.OpLte:
		return a <= b
	case ast.OpGte:
		return a >= b
	default:
		return false
	}
}

func orderedString(a string, op ast.Operator, b string) bool {
	switch op {
	case ast.OpLt:
		return a < b
	case ast.OpGt:
		return a > b
	case ast.OpLte:
		return a <= b
	case ast.OpGte:
		return a >= b
	default:
		return false
	}
}

// likeMatch implements SQL LIKE with '%' (any run, possibly empty) and
// '_' (exactly one char) against s, via iterative backtracking — no
// regex dependency (§4.6).
func likeMatch(s, pattern string) bool {
	si, pi := 0, 0
	starSi, starPi := -1, -1
	for si < len(s) {
		if pi < len(pattern) && (pattern[pi] == '_' || pattern[pi] == s[si]) {
			si++
			pi++
			continue
		}
		if pi < len(pattern) && pattern[pi] == '%' {
			starPi = pi
			starSi = si
			pi++
			continue
		}
		if starPi != -1 {
			pi = starPi + 1
			starSi++
			si = starSi
			continue
		}
		return false
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}

