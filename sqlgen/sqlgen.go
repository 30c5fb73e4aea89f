// Package sqlgen compiles a typechecked query into an ordered sequence
// of SQL statements for SQLite-family engines, choreographing the
// JSON-CTE nested-select and temp-table insert strategies described by
// the typechecker's per-query QueryInfo.
package sqlgen

import (
	"fmt"

	"pyreql/ast"
	"pyreql/typecheck"
)

// Prepared is one statement in a compiled query's execution plan.
// Include=false statements are side-effecting only (attach, temp table
// population, DDL); Include=true statements produce caller-visible rows.
type Prepared struct {
	Include bool
	SQL     string
}

// Compile turns one typechecked query into its full statement sequence.
func Compile(ctx *typecheck.Context, q *ast.Query, qi *typecheck.QueryInfo) []Prepared {
	g := &generator{ctx: ctx, qi: qi, query: q}

	var out []Prepared
	for _, ns := range qi.AttachedDBs {
		out = append(out, Prepared{Include: false, SQL: fmt.Sprintf(`attach database %s as "%s"`, attachSource(ns), ns)})
	}

	for _, root := range ast.CollectQueryFields(q) {
		table, ok := ctx.Table("", root.TargetName)
		if !ok {
			continue // already reported by typecheck.CheckQuery
		}
		switch q.Operation {
		case ast.OpSelect:
			out = append(out, g.compileSelectRoot(table, root)...)
		case ast.OpInsert:
			out = append(out, g.compileInsertRoot(table, root, nil)...)
		case ast.OpUpdate:
			out = append(out, g.compileUpdate(table, root))
		case ast.OpDelete:
			out = append(out, g.compileDelete(table, root))
		}
	}
	return out
}

// attachSource produces the connection-string placeholder for a
// namespace's database file; the consumer substitutes the real path,
// the generator only needs a stable, quotable token.
func attachSource(ns string) string {
	return "'" + ns + ".db'"
}

type generator struct {
	ctx   *typecheck.Context
	qi    *typecheck.QueryInfo
	query *ast.Query
	tmp   int
}

func (g *generator) nextTempName(prefix string) string {
	g.tmp++
	return fmt.Sprintf("%s_%d", prefix, g.tmp)
}

func qident(name string) string { return `"` + name + `"` }

func (g *generator) qualifiedTable(t *typecheck.Table) string {
	if t.Namespace == g.qi.PrimaryDB {
		return qident(t.TableName)
	}
	return qident(t.Namespace) + "." + qident(t.TableName)
}

// needsCTE reports whether a select root requires the JSON-CTE
// strategy: any nested link selection, per §9's "CTE vs. flat select
// decision".
func needsCTE(qf *ast.QueryField) bool {
	for _, nf := range ast.CollectNestedFields(qf) {
		// A nested field is a link selection if it itself carries nested
		// fields or directives beyond a bare leaf — but the simplest
		// correct signal is: it names a link, not a column, on the
		// enclosing table. The generator is only ever called after
		// typecheck has confirmed the shape, so presence of any nested
		// QueryField with its own nested QueryFields/directives is enough.
		if len(ast.CollectNestedFields(nf)) > 0 || ast.GetWhere(nf) != nil || len(ast.GetSorts(nf)) > 0 {
			return true
		}
	}
	return false
}

// fieldLink is a query field resolved to the link it addresses, in
// either direction: a declared many-to-one link owned by the field's
// own table ("post { author { ... } }", forward) or a reciprocal
// one-to-many link owned by the field's target table ("user { posts {
// ... } }", derived on demand by typecheck.ReciprocalLinks).
type fieldLink struct {
	link    *ast.Link
	target  *typecheck.Table
	forward bool
}

// resolveFieldLink finds the link a query field addresses, checking
// table's own declared links first and falling back to the reciprocal
// links inbound to table, so the generator can choreograph both
// "author" (forward) and "posts" (reciprocal) style nested selections
// and inserts identically.
func (g *generator) resolveFieldLink(table *typecheck.Table, qf *ast.QueryField) (*fieldLink, bool) {
	for _, l := range ast.CollectLinks(table.Record) {
		if l.Name != qf.TargetName {
			continue
		}
		target, ok := linkTargetTable(g.ctx, table.Namespace, l)
		if !ok {
			return nil, false
		}
		return &fieldLink{link: l, target: target, forward: true}, true
	}
	for _, r := range typecheck.ReciprocalLinks(g.ctx, table.Namespace, ast.Decapitalize(table.Record.Name)) {
		if r.Name != qf.TargetName {
			continue
		}
		owner, ok := g.ctx.Table(r.FromNamespace, r.FromTable)
		if !ok {
			return nil, false
		}
		return &fieldLink{link: r.Link, target: owner, forward: false}, true
	}
	return nil, false
}

// keyColumns returns the (parentKey, childKey) column-name pair a
// fieldLink joins on: for a forward link the parent owns the FK column
// and the child is identified by the link's foreign field; for a
// reciprocal link the roles swap, since the child table is the one
// owning the FK.
func keyColumns(fl *fieldLink) (parentKey, childKey string) {
	if fl.forward {
		return effectiveLocalColumn(fl.link), fl.link.ForeignField
	}
	return fl.link.ForeignField, effectiveLocalColumn(fl.link)
}

// isToOne reports whether fl identifies at most one row on the child
// side: true for a forward link whose foreign field is unique on the
// target, or a reciprocal link whose own FK column is itself unique on
// the owning table (a 1-1 relationship addressed from its far side).
func isToOne(fl *fieldLink) bool {
	if fl.forward {
		return ast.LinkedToUniqueField(fl.link, fl.target.Record)
	}
	local := effectiveLocalColumn(fl.link)
	for _, c := range ast.CollectColumns(fl.target.Record) {
		if c.Name == local {
			return ast.IsPrimaryKey(c) || c.HasDirective(ast.DirectiveUnique)
		}
	}
	return false
}

func linkTargetTable(ctx *typecheck.Context, ns string, l *ast.Link) (*typecheck.Table, bool) {
	targetNS := l.ForeignSchema
	if targetNS == "" {
		targetNS = ns
	}
	return ctx.Table(targetNS, ast.Decapitalize(l.ForeignTable))
}

func effectiveLocalColumn(l *ast.Link) string {
	if l.LocalColumn != "" {
		return l.LocalColumn
	}
	return l.Name
}
