// Package diff compares a declared schema against an introspected one
// and compiles the difference into SQLite DDL statements.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"pyreql/ast"
	"pyreql/typecheck"
)

// ChangeKind discriminates one column-level change within a table.
type ChangeKind int

const (
	ColumnAdded ChangeKind = iota
	ColumnRemoved
	ColumnModified
)

// ColumnChange is one column-level difference inside a RecordChange.
type ColumnChange struct {
	Kind   ChangeKind
	Name   string
	Column *ast.Column // nil for ColumnRemoved
}

// RecordChange is every column-level difference for one table that
// exists on both sides of the diff.
type RecordChange struct {
	Namespace string
	TableName string
	Changes   []ColumnChange
}

// AddedRecord is a declared table absent from the introspected schema,
// paired with the namespace it was declared in — needed to resolve any
// tagged-union column types when rendering its `create table` DDL.
type AddedRecord struct {
	Namespace string
	Record    *ast.Record
}

// Diff is the full structural difference between two schemas: tables
// present only in the declared schema, tables present only in the
// introspected one, and per-table column changes for tables in both.
type Diff struct {
	Added    []AddedRecord // declared tables absent from introspected
	Removed  []string      // introspected table names absent from declared
	Modified []RecordChange
}

// IsEmpty reports whether the diff has no changes at all, the
// condition §8's idempotence property requires when comparing a
// schema against its own introspection.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Compute diffs a declared schema's tables (by namespace) against an
// introspected one, using the already-resolved Contexts of each so
// table names, columns, and directives are all materialized.
func Compute(declared, introspected *typecheck.Context) Diff {
	var d Diff

	declaredTables := allTables(declared)
	introspectedTables := allTables(introspected)

	for name, t := range declaredTables {
		if _, ok := introspectedTables[name]; !ok {
			d.Added = append(d.Added, AddedRecord{Namespace: t.Namespace, Record: t.Record})
		}
	}
	for name := range introspectedTables {
		if _, ok := declaredTables[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}
	for name, declT := range declaredTables {
		introT, ok := introspectedTables[name]
		if !ok {
			continue
		}
		if rc := diffColumns(declT.Namespace, name, declT.Record, introT.Record); len(rc.Changes) > 0 {
			d.Modified = append(d.Modified, rc)
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Record.Name < d.Added[j].Record.Name })
	sort.Strings(d.Removed)
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].TableName < d.Modified[j].TableName })

	return d
}

func allTables(ctx *typecheck.Context) map[string]*typecheck.Table {
	out := map[string]*typecheck.Table{}
	for _, byName := range ctx.TablesByNamespace {
		for _, t := range byName {
			out[t.TableName] = t
		}
	}
	return out
}

func diffColumns(ns, tableName string, declared, introspected *ast.Record) RecordChange {
	rc := RecordChange{Namespace: ns, TableName: tableName}
	declCols := map[string]*ast.Column{}
	for _, c := range ast.CollectColumns(declared) {
		declCols[c.Name] = c
	}
	introCols := map[string]*ast.Column{}
	for _, c := range ast.CollectColumns(introspected) {
		introCols[c.Name] = c
	}

	var names []string
	for n := range declCols {
		names = append(names, n)
	}
	for n := range introCols {
		if _, ok := declCols[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for _, n := range names {
		dc, hasDecl := declCols[n]
		ic, hasIntro := introCols[n]
		switch {
		case hasDecl && !hasIntro:
			rc.Changes = append(rc.Changes, ColumnChange{Kind: ColumnAdded, Name: n, Column: dc})
		case !hasDecl && hasIntro:
			rc.Changes = append(rc.Changes, ColumnChange{Kind: ColumnRemoved, Name: n})
		case hasDecl && hasIntro && !sameColumn(dc, ic):
			rc.Changes = append(rc.Changes, ColumnChange{Kind: ColumnModified, Name: n, Column: dc})
		}
	}
	return rc
}

func sameColumn(a, b *ast.Column) bool {
	return sqlType(a.Type) == sqlType(b.Type) && a.Nullable == b.Nullable
}

// Statement is one rendered DDL line, paired with whether it requires
// manual follow-up (a column type change SQLite cannot apply in place).
type Statement struct {
	SQL          string
	ManualReview bool
}

// ToSQL renders a Diff to its DDL statement sequence (§4.5): drops
// before creates to avoid foreign-key hazards, then per-table column
// additions/removals/modifications, with `@index` columns emitting a
// follow-up `create index`. ctx is the declared schema's resolved
// Context, consulted to expand any tagged-union-typed column into its
// discriminator-plus-payload-columns shape (§9 "Tagged unions as
// columns").
func ToSQL(d Diff, ctx *typecheck.Context) []Statement {
	var out []Statement

	for _, name := range d.Removed {
		out = append(out, Statement{SQL: fmt.Sprintf(`drop table if exists %q`, name)})
	}

	for _, rec := range d.Added {
		out = append(out, createTableStatements(ctx, rec.Namespace, rec.Record)...)
	}

	for _, rc := range d.Modified {
		for _, c := range rc.Changes {
			switch c.Kind {
			case ColumnAdded:
				for _, def := range expandColumnDDL(ctx, rc.Namespace, c.Column) {
					out = append(out, Statement{SQL: fmt.Sprintf(`alter table %q add column %s`, rc.TableName, def)})
				}
				if c.Column.HasDirective(ast.DirectiveIndex) {
					out = append(out, indexStatement(rc.TableName, c.Column.Name))
				}
			case ColumnRemoved:
				out = append(out, Statement{SQL: fmt.Sprintf(`alter table %q drop column %q`, rc.TableName, c.Name)})
			case ColumnModified:
				out = append(out, Statement{
					SQL:          fmt.Sprintf(`-- manual: column %q on %q changed type to %s; SQLite cannot retype in place`, c.Name, rc.TableName, sqlType(c.Column.Type)),
					ManualReview: true,
				})
			}
		}
	}

	return out
}

func createTableStatements(ctx *typecheck.Context, ns string, rec *ast.Record) []Statement {
	tableName := ast.GetTablename(rec)
	cols := typecheck.CanonicalColumns(rec)
	var defs []string
	for _, c := range cols {
		defs = append(defs, expandColumnDDL(ctx, ns, c)...)
	}
	for _, l := range ast.CollectLinks(rec) {
		defs = append(defs, fmt.Sprintf(`foreign key (%q) references %q(%q)`,
			localColumnOf(l), ast.Decapitalize(l.ForeignTable), l.ForeignField))
	}
	out := []Statement{{SQL: fmt.Sprintf(`create table %q (%s)`, tableName, strings.Join(defs, ", "))}}
	for _, c := range cols {
		if c.HasDirective(ast.DirectiveIndex) {
			out = append(out, indexStatement(tableName, c.Name))
		}
	}
	return out
}

// expandColumnDDL renders one declared column's DDL fragment(s): a
// single definition for any concrete storage kind, or — for a
// tagged-union-typed column — the discriminator column (columnDDL
// already renders it as TEXT, via sqlType's TypeNamed fallback)
// followed by one nullable column per payload field across every
// variant that carries one, named "<column>__<variant>__<field>" so
// each variant's payload lives in its own column and readers
// reconstruct the active one from the discriminator (§9).
func expandColumnDDL(ctx *typecheck.Context, ns string, c *ast.Column) []string {
	defs := []string{columnDDL(c)}
	oneOf, ok := resolveOneOf(ctx, ns, c.Type)
	if !ok {
		return defs
	}
	for _, v := range oneOf.Variants {
		for _, p := range v.Payload {
			defs = append(defs, payloadColumnDDL(c.Name, v.Name, p))
		}
	}
	return defs
}

func resolveOneOf(ctx *typecheck.Context, ns string, t ast.Type) (*typecheck.OneOf, bool) {
	if ctx == nil || t.Kind != ast.TypeNamed {
		return nil, false
	}
	entry, ok := ctx.ResolveType(ns, t.Named)
	if !ok || entry.Kind != typecheck.KindOneOf {
		return nil, false
	}
	return entry.OneOf, true
}

// payloadVariantColumn is the naming convention (§9) for one variant's
// payload field once materialized as a column of its own.
func payloadVariantColumn(ownerColumn, variantName, fieldName string) string {
	return fmt.Sprintf("%s__%s__%s", ownerColumn, variantName, fieldName)
}

func payloadColumnDDL(ownerColumn, variantName string, p *ast.Column) string {
	return fmt.Sprintf("%q %s", payloadVariantColumn(ownerColumn, variantName, p.Name), sqlType(p.Type))
}

func localColumnOf(l *ast.Link) string {
	if l.LocalColumn != "" {
		return l.LocalColumn
	}
	return l.Name
}

func indexStatement(tableName, columnName string) Statement {
	return Statement{SQL: fmt.Sprintf(`create index if not exists "idx_%s_%s" on %q(%q)`, tableName, columnName, tableName, columnName)}
}

func columnDDL(c *ast.Column) string {
	parts := []string{fmt.Sprintf("%q", c.Name), sqlType(c.Type)}
	if c.HasDirective(ast.DirectiveID) {
		parts = append(parts, "primary key autoincrement")
	}
	if c.HasDirective(ast.DirectiveUnique) {
		parts = append(parts, "unique")
	}
	if !c.Nullable && !c.HasDirective(ast.DirectiveID) {
		parts = append(parts, "not null")
	}
	if def, ok := c.Default(); ok {
		parts = append(parts, "default "+defaultSQL(c.Type, def))
	}
	return strings.Join(parts, " ")
}

func defaultSQL(t ast.Type, def ast.Expr) string {
	if fn, ok := def.(*ast.FuncCallExpr); ok && fn.Name == "now" {
		switch t.Kind {
		case ast.TypeDate:
			return "current_date"
		case ast.TypeDateTime:
			return "unixepoch()"
		default:
			return "unixepoch()"
		}
	}
	return literalSQL(def)
}

func literalSQL(e ast.Expr) string {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok {
		return "null"
	}
	switch lit.Kind {
	case ast.LiteralString:
		return "'" + lit.String + "'"
	case ast.LiteralInt:
		return fmt.Sprint(lit.Int)
	case ast.LiteralFloat:
		return fmt.Sprint(lit.Float)
	case ast.LiteralBool:
		if lit.Bool {
			return "1"
		}
		return "0"
	default:
		return "null"
	}
}

// sqlType maps a Pyre serialization type to its SQLite column type
// (§4.5). A named (tagged-union) type maps to the TEXT fallback, which
// is the discriminator column's type; expandColumnDDL adds the payload
// columns separately.
func sqlType(t ast.Type) string {
	switch t.Kind {
	case ast.TypeInteger:
		return "INTEGER"
	case ast.TypeReal:
		return "REAL"
	case ast.TypeText, ast.TypeDate:
		return "TEXT"
	case ast.TypeBlob:
		return "BLOB"
	case ast.TypeJsonB:
		return "JSON_BLOB"
	case ast.TypeDateTime:
		return "INTEGER"
	case ast.TypeVectorBlob:
		return fmt.Sprintf("F%s_BLOB(%d)", t.VectorKind, t.VectorDim)
	default:
		return "TEXT"
	}
}
