package typecheck

import (
	"fmt"

	"pyreql/ast"
)

// CheckQuery typechecks one query against an already-resolved Context,
// returning its QueryInfo and any accumulated errors. Schema checking
// must have already run cleanly — §7 requires schema errors to abort
// before query checking begins.
func CheckQuery(ctx *Context, q *ast.Query, path string) (*QueryInfo, ErrorList) {
	var errs ErrorList
	qi := newQueryInfo("")

	roots := ast.CollectQueryFields(q)
	if len(roots) == 0 {
		errs = append(errs, newErr(path, ErrUnknownTable, "query has no root field", q.Range.Start))
		return qi, errs
	}

	declared := map[string]*ast.Type{}
	for _, a := range q.Args {
		declared[a.Name] = a.Type
	}

	for _, rf := range roots {
		table, ok := ctx.Table("", rf.TargetName)
		if !ok {
			errs = append(errs, newErr(path, ErrUnknownTable,
				"unknown table \""+rf.TargetName+"\"", rf.Range.Start))
			continue
		}
		if qi.PrimaryDB == "" {
			qi.PrimaryDB = table.Namespace
		} else {
			qi.addAttachedDB(table.Namespace)
		}

		nested := ast.CollectNestedFields(rf)
		errs = append(errs, checkDirectives(ctx, qi, table, rf, path)...)

		if q.Operation == ast.OpDelete && len(nested) > 0 {
			errs = append(errs, newErr(path, ErrInvalidSet,
				"delete forbids nested field selection", rf.Range.Start))
		}

		if (q.Operation == ast.OpUpdate || q.Operation == ast.OpDelete) && ast.GetWhere(rf) == nil {
			errs = append(errs, newErr(path, ErrWhereRequired,
				"\""+q.Name+"\" requires a root @where", rf.Range.Start))
		}

		if q.Operation != ast.OpDelete {
			for _, nf := range nested {
				errs = append(errs, checkNestedField(ctx, qi, table, nf, q.Operation, path)...)
			}
		}

		if q.Operation == ast.OpInsert {
			errs = append(errs, checkInsertCompleteness(table, nested, path, rf.Range.Start)...)
		}
	}

	errs = append(errs, checkArgUsage(qi, declared, path, q.Range.Start)...)
	return qi, errs
}

// checkNestedField resolves one nested QueryField against its
// enclosing table (a column or a link) and recurses into link targets.
func checkNestedField(ctx *Context, qi *QueryInfo, table *Table, qf *ast.QueryField, op ast.QueryOperation, path string) ErrorList {
	var errs ErrorList

	if col := findColumn(table.Record, qf.TargetName); col != nil {
		switch op {
		case ast.OpSelect:
			if qf.SetValue != nil {
				errs = append(errs, newErr(path, ErrInvalidSet,
					"select forbids \"= expr\" on field \""+qf.TargetName+"\"", qf.Range.Start))
			}
		case ast.OpInsert, ast.OpUpdate:
			if qf.SetValue != nil {
				errs = append(errs, checkExprType(ctx, qi, table, col.Type, qf.SetValue, path)...)
			}
		}
		return errs
	}

	if _, target, found := findAnyLink(ctx, table, qf.TargetName); found {
		if target == nil {
			errs = append(errs, newErr(path, ErrQueryUnknownField,
				"link \""+qf.TargetName+"\" target table not found", qf.Range.Start))
			return errs
		}
		if op == ast.OpDelete {
			errs = append(errs, newErr(path, ErrInvalidSet,
				"delete forbids nested field selection", qf.Range.Start))
			return errs
		}
		qi.addAttachedDB(target.Namespace)

		errs = append(errs, checkDirectives(ctx, qi, target, qf, path)...)

		nested := ast.CollectNestedFields(qf)
		for _, nf := range nested {
			errs = append(errs, checkNestedField(ctx, qi, target, nf, op, path)...)
		}
		if op == ast.OpInsert {
			errs = append(errs, checkInsertCompleteness(target, nested, path, qf.Range.Start)...)
		}
		return errs
	}

	errs = append(errs, newErr(path, ErrQueryUnknownField,
		"unknown field \""+qf.TargetName+"\" on \""+table.Record.Name+"\"", qf.Range.Start))
	return errs
}

// findAnyLink resolves a nested query field's name to a link in either
// direction: a forward link declared on table itself ("author"), or a
// reciprocal link derived from some other table's forward link pointing
// at table ("posts"). found is true as soon as a link is recognized by
// name, even when its target table turns out to be missing — that is
// reported by the caller as a separate error.
func findAnyLink(ctx *Context, table *Table, name string) (link *ast.Link, target *Table, found bool) {
	if l := findLink(table.Record, name); l != nil {
		targetNS := l.ForeignSchema
		if targetNS == "" {
			targetNS = table.Namespace
		}
		t, ok := ctx.Table(targetNS, ast.Decapitalize(l.ForeignTable))
		if !ok {
			return l, nil, true
		}
		return l, t, true
	}
	for _, r := range ReciprocalLinks(ctx, table.Namespace, ast.Decapitalize(table.Record.Name)) {
		if r.Name != name {
			continue
		}
		t, ok := ctx.Table(r.FromNamespace, r.FromTable)
		if !ok {
			return r.Link, nil, true
		}
		return r.Link, t, true
	}
	return nil, nil, false
}

func findColumn(rec *ast.Record, name string) *ast.Column {
	for _, c := range ast.CollectColumns(rec) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func findLink(rec *ast.Record, name string) *ast.Link {
	for _, l := range ast.CollectLinks(rec) {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// checkInsertCompleteness enforces "insert requires = expr for every
// non-nullable, non-defaulted column" (§4.3) against the set of
// plain-column fields actually present among a table's insert fields.
func checkInsertCompleteness(table *Table, fields []*ast.QueryField, path string, loc ast.Location) ErrorList {
	var errs ErrorList
	set := map[string]bool{}
	for _, f := range fields {
		if f.SetValue != nil {
			set[f.TargetName] = true
		}
	}
	pk, _ := ast.GetPrimaryIDFieldName(table.Record)
	for _, c := range ast.CollectColumns(table.Record) {
		if c.Name == pk {
			continue // autoincrement primary keys are never required in an insert
		}
		if c.Nullable {
			continue
		}
		if _, hasDefault := c.Default(); hasDefault {
			continue
		}
		if c.Name == "updatedAt" {
			continue // auto-managed (§4.4)
		}
		if !set[c.Name] {
			errs = append(errs, newErr(path, ErrInvalidSet,
				fmt.Sprintf("insert into %q missing required column %q", table.Record.Name, c.Name), loc))
		}
	}
	return errs
}

// checkDirectives validates a field's @where/@sort/@limit/@offset
// clauses against the table it applies to.
func checkDirectives(ctx *Context, qi *QueryInfo, table *Table, qf *ast.QueryField, path string) ErrorList {
	var errs ErrorList

	if w := ast.GetWhere(qf); w != nil {
		errs = append(errs, checkWhereExprColumns(ctx, qi, table, w.Expr, path)...)
	}
	for _, s := range ast.GetSorts(qf) {
		if findColumn(table.Record, s.Column) == nil {
			errs = append(errs, newErr(path, ErrQueryUnknownField,
				"@sort references unknown column \""+s.Column+"\" on \""+table.Record.Name+"\"", s.Range.Start))
		}
	}
	if l := ast.GetLimit(qf); l != nil {
		errs = append(errs, checkIntOrIntVar(ctx, qi, l.Value, path, ErrInvalidLimit)...)
	}
	if o := ast.GetOffset(qf); o != nil {
		errs = append(errs, checkIntOrIntVar(ctx, qi, o.Value, path, ErrInvalidLimit)...)
	}
	return errs
}

func checkIntOrIntVar(ctx *Context, qi *QueryInfo, e ast.Expr, path string, errType ErrorType) ErrorList {
	switch v := e.(type) {
	case *ast.LiteralExpr:
		if v.Kind != ast.LiteralInt {
			return ErrorList{newErr(path, errType, "expected an integer literal", v.Range.Start)}
		}
		return nil
	case *ast.VarExpr:
		return bindVar(qi, v, VarType{Kind: ast.TypeInteger})
	default:
		return ErrorList{newErr(path, errType, "expected an integer literal or variable", locOf(e))}
	}
}

// checkWhereExprColumns walks a where-expression tree, checking every
// leaf's column reference against table and recording variable usage
// and session-field validity.
func checkWhereExprColumns(ctx *Context, qi *QueryInfo, table *Table, e ast.Expr, path string) ErrorList {
	var errs ErrorList
	switch expr := e.(type) {
	case *ast.AndExpr:
		errs = append(errs, checkWhereExprColumns(ctx, qi, table, expr.Left, path)...)
		errs = append(errs, checkWhereExprColumns(ctx, qi, table, expr.Right, path)...)
	case *ast.OrExpr:
		errs = append(errs, checkWhereExprColumns(ctx, qi, table, expr.Left, path)...)
		errs = append(errs, checkWhereExprColumns(ctx, qi, table, expr.Right, path)...)
	case *ast.Comparison:
		col := findColumn(table.Record, expr.Column.Name)
		if col == nil && !expr.Column.IsSession {
			errs = append(errs, newErr(path, ErrQueryUnknownField,
				"@where references unknown column \""+expr.Column.Name+"\" on \""+table.Record.Name+"\"",
				expr.Column.Range.Start))
		}
		var colType ast.Type
		if col != nil {
			colType = col.Type
		}
		if expr.Operator == ast.OpIn || expr.Operator == ast.OpNotIn {
			errs = append(errs, checkInValue(ctx, qi, table, colType, expr.Value, path)...)
		} else {
			errs = append(errs, checkExprType(ctx, qi, table, colType, expr.Value, path)...)
		}
	}
	return errs
}

// checkInValue checks the right-hand side of an `in`/`not in`
// comparison: each element of an array literal against the column's
// element type, or a bare variable against that same element type
// (its declared type is expected to be the array itself).
func checkInValue(ctx *Context, qi *QueryInfo, table *Table, colType ast.Type, e ast.Expr, path string) ErrorList {
	if lit, ok := e.(*ast.LiteralExpr); ok && lit.Kind == ast.LiteralArray {
		var errs ErrorList
		for _, el := range lit.Array {
			errs = append(errs, checkExprType(ctx, qi, table, colType, el, path)...)
		}
		return errs
	}
	return checkExprType(ctx, qi, table, colType, e, path)
}

// checkExprType checks a value expression against an expected column
// type, inferring and recording argument types from first use (§4.3)
// and validating session references, function calls, and tagged
// variant literals.
func checkExprType(ctx *Context, qi *QueryInfo, table *Table, expected ast.Type, e ast.Expr, path string) ErrorList {
	var errs ErrorList
	switch v := e.(type) {
	case *ast.VarExpr:
		if v.IsSession {
			if ctx.Session == nil {
				errs = append(errs, newErr(path, ErrQueryUnknownField,
					"Session."+v.SessionField+" referenced but no session is declared", v.Range.Start))
				return errs
			}
			found := false
			for _, c := range ctx.Session.Columns {
				if c.Name == v.SessionField {
					found = true
				}
			}
			if !found {
				errs = append(errs, newErr(path, ErrQueryUnknownField,
					"unknown session field \""+v.SessionField+"\"", v.Range.Start))
			}
			return errs
		}
		return bindVar(qi, v, varTypeOf(expected))

	case *ast.LiteralExpr:
		return checkLiteralType(expected, v, path)

	case *ast.VariantExpr:
		if expected.Kind != ast.TypeNamed {
			errs = append(errs, newErr(path, ErrTypeMismatch,
				"tagged variant used where "+typeName(expected)+" expected", v.Range.Start))
			return errs
		}
		entry, ok := ctx.ResolveType(table.Namespace, expected.Named)
		if !ok || entry.Kind != KindOneOf {
			errs = append(errs, newErr(path, ErrTypeMismatch, "not a tagged union: "+expected.Named, v.Range.Start))
			return errs
		}
		if entry.OneOf.Name != v.Union {
			errs = append(errs, newErr(path, ErrTypeMismatch,
				"expected variant of \""+entry.OneOf.Name+"\", found \""+v.Union+"\"", v.Range.Start))
			return errs
		}
		if _, ok := entry.OneOf.Variant(v.Variant); !ok {
			errs = append(errs, newErr(path, ErrUnknownField,
				"unknown variant \""+v.Variant+"\" on \""+v.Union+"\"", v.Range.Start))
		}
		return errs

	case *ast.FuncCallExpr:
		fn := lookupBuiltinFunc(v.Name, len(v.Args))
		if fn == nil {
			errs = append(errs, newErr(path, ErrOperatorTypeMismatch,
				"unknown function \""+v.Name+"\" with "+fmt.Sprint(len(v.Args))+" argument(s)", v.Range.Start))
			return errs
		}
		for i, a := range v.Args {
			argExpected := concreteToType(fn.params[i])
			errs = append(errs, checkExprType(ctx, qi, table, argExpected, a, path)...)
		}
		return errs

	case *ast.ColumnRefExpr:
		if findColumn(table.Record, v.Ref.Name) == nil {
			errs = append(errs, newErr(path, ErrQueryUnknownField,
				"unknown column \""+v.Ref.Name+"\"", v.Range.Start))
		}
		return errs

	default:
		return errs
	}
}

func concreteToType(f paramFamily) ast.Type {
	if f.isNumber {
		return ast.Type{Kind: ast.TypeInteger}
	}
	return ast.Type{Kind: f.concrete}
}

func checkLiteralType(expected ast.Type, lit *ast.LiteralExpr, path string) ErrorList {
	if lit.Kind == ast.LiteralNull {
		return nil
	}
	ok := false
	switch expected.Kind {
	case ast.TypeInteger:
		ok = lit.Kind == ast.LiteralInt || lit.Kind == ast.LiteralBool
	case ast.TypeReal:
		ok = lit.Kind == ast.LiteralFloat || lit.Kind == ast.LiteralInt
	case ast.TypeText, ast.TypeDate, ast.TypeDateTime:
		ok = lit.Kind == ast.LiteralString
	case ast.TypeJsonB:
		ok = true
	default:
		ok = true
	}
	if !ok {
		return ErrorList{newErr(path, ErrTypeMismatch,
			fmt.Sprintf("expected %s, found literal", typeName(expected)), lit.Range.Start)}
	}
	return nil
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
		return "VectorBlob"
	case ast.TypeNamed:
		return t.Named
	default:
		return "?"
	}
}

func varTypeOf(t ast.Type) VarType {
	return VarType{Kind: t.Kind, Named: t.Named}
}

// bindVar records a variable's inferred type on first use and flags a
// conflict if a later use disagrees.
func bindVar(qi *QueryInfo, v *ast.VarExpr, t VarType) ErrorList {
	usage := qi.variable(v.Name)
	if !usage.Used {
		usage.Used = true
		usage.Type = t
		return nil
	}
	if usage.Type.Kind != t.Kind || usage.Type.Named != t.Named {
		return ErrorList{{Type: ErrTypeMismatch, Message: fmt.Sprintf("argument \"%s\" used with conflicting types", v.Name), Locations: []ast.Location{v.Range.Start}}}
	}
	return nil
}

func locOf(e ast.Expr) ast.Location {
	switch v := e.(type) {
	case *ast.LiteralExpr:
		return v.Range.Start
	case *ast.VarExpr:
		return v.Range.Start
	case *ast.FuncCallExpr:
		return v.Range.Start
	case *ast.VariantExpr:
		return v.Range.Start
	case *ast.ColumnRefExpr:
		return v.Range.Start
	default:
		return ast.Location{}
	}
}

// checkArgUsage enforces "every declared argument must be used" and
// "every used but undeclared argument is an error" (§4.3).
func checkArgUsage(qi *QueryInfo, declared map[string]*ast.Type, path string, loc ast.Location) ErrorList {
	var errs ErrorList
	for name := range declared {
		if u, ok := qi.Variables[name]; !ok || !u.Used {
			errs = append(errs, newErr(path, ErrUnusedParam, "unused parameter \"$"+name+"\"", loc))
		}
	}
	for name := range qi.Variables {
		if _, ok := declared[name]; !ok {
			errs = append(errs, newErr(path, ErrUndeclaredParam, "undeclared parameter \"$"+name+"\"", loc))
		}
	}
	return errs
}
