package sqlgen

import (
	"fmt"
	"strings"

	"pyreql/ast"
	"pyreql/typecheck"
)

// compileUpdate renders `update T set … where …`. §4.3 requires a
// non-empty root @where, already enforced by the typechecker. Neither
// update nor delete ever emits a `returning` clause (§4.4's strategy
// table reserves that to the select/insert-with-nested-select
// choreography), so Prepared.Include is always false here regardless
// of whether the query names return fields.
func (g *generator) compileUpdate(table *typecheck.Table, root *ast.QueryField) Prepared {
	var sets []string
	set := map[string]bool{}
	for _, c := range ast.CollectNestedFields(root) {
		if c.SetValue == nil {
			continue
		}
		set[c.TargetName] = true
		sets = append(sets, fmt.Sprintf("%s = %s", qident(c.TargetName), renderExpr(c.SetValue)))
	}
	// A discriminator write switches the active variant: null out every
	// payload column of every variant not already set explicitly, so a
	// stale payload from the previous variant can't survive the switch.
	for _, c := range ast.CollectNestedFields(root) {
		oneOf, _, ok := g.resolveVariantSet(table, c)
		if !ok {
			continue
		}
		for _, col := range g.variantPayloadColumns(oneOf, c.TargetName, set) {
			set[col] = true
			sets = append(sets, qident(col)+" = null")
		}
	}
	if hasUpdatedAt(table) && !set["updatedAt"] {
		sets = append(sets, qident("updatedAt")+" = unixepoch()")
	}
	sql := fmt.Sprintf("update %s set %s%s", g.qualifiedTable(table), strings.Join(sets, ", "), renderWhereClause(root))
	return Prepared{Include: false, SQL: sql}
}

// compileDelete renders `delete from T where …`.
func (g *generator) compileDelete(table *typecheck.Table, root *ast.QueryField) Prepared {
	sql := fmt.Sprintf("delete from %s%s", g.qualifiedTable(table), renderWhereClause(root))
	return Prepared{Include: false, SQL: sql}
}
