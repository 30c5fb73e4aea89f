package sqlgen

import (
	"fmt"
	"strings"

	"pyreql/ast"
	"pyreql/typecheck"
)

// compileSelectRoot dispatches a select root field to the flat or
// JSON-CTE strategy based on whether it descends into nested links.
func (g *generator) compileSelectRoot(table *typecheck.Table, root *ast.QueryField) []Prepared {
	return g.compileSelectRootConstrained(table, root, "")
}

// compileSelectRootConstrained is compileSelectRoot plus an extra raw
// SQL boolean ANDed onto the root's own where-clause, used by the
// insert choreography (§4.4.2 step 4) to scope the post-insert select
// to just-inserted rows.
func (g *generator) compileSelectRootConstrained(table *typecheck.Table, root *ast.QueryField, extra string) []Prepared {
	if needsCTE(root) {
		return g.compileJSONSelect(table, root, extra)
	}
	return []Prepared{g.compileFlatSelect(table, root, extra)}
}

// compileFlatSelect renders a select with no nested links: a single
// `select … from … where … order by … limit … offset …` aliasing every
// requested column "{table_alias}__{field_name}".
func (g *generator) compileFlatSelect(table *typecheck.Table, root *ast.QueryField, extra string) Prepared {
	alias := ast.GetAliasedName(root)
	cols := ast.CollectNestedFields(root)
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s.%s as %s", alias, qident(c.TargetName), qident(ast.GetSelectAlias(alias, c))))
	}
	if len(parts) == 0 {
		parts = append(parts, alias+".*")
	}
	sql := fmt.Sprintf("select %s from %s as %s%s%s",
		strings.Join(parts, ", "), g.qualifiedTable(table), alias,
		andExtra(renderWhereClause(root), extra), renderOrderLimitOffset(root))
	return Prepared{Include: true, SQL: sql}
}

// andExtra appends an extra raw boolean condition onto an already
// rendered where-clause (which may be empty), introducing " where " or
// " and " as appropriate.
func andExtra(whereClause, extra string) string {
	if extra == "" {
		return whereClause
	}
	if whereClause == "" {
		return " where " + extra
	}
	return whereClause + " and " + extra
}

type selectLevel struct {
	alias string
	table *typecheck.Table
	qf    *ast.QueryField
}

type selectEdge struct {
	parent    selectLevel
	child     selectLevel
	fl        *fieldLink
	parentKey string
	childKey  string
}

// compileJSONSelect implements §4.4.1's CTE choreography: a
// selected__X CTE per level of the field tree, a json__X aggregation
// CTE per level merging that level's own columns with any direct
// children's already-aggregated JSON, and a final projection keyed by
// the root field's own alias — the query's result is a single row
// holding `json_object('<root>', [...])`, an array of every matching
// root record (§4.4.1 step 4). Link fields resolve in either direction
// (forward "author" or reciprocal "posts"), so both sides of a
// declared link can be queried, at any nesting depth.
func (g *generator) compileJSONSelect(table *typecheck.Table, root *ast.QueryField, extra string) []Prepared {
	rootLevel := selectLevel{alias: ast.GetAliasedName(root), table: table, qf: root}

	forceCols := map[string][]string{}
	addForce := func(alias, col string) {
		for _, c := range forceCols[alias] {
			if c == col {
				return
			}
		}
		forceCols[alias] = append(forceCols[alias], col)
	}

	var order []selectLevel
	var edges []selectEdge
	childrenOf := map[string][]selectEdge{}

	var walk func(parent selectLevel)
	walk = func(parent selectLevel) {
		order = append(order, parent)
		for _, nf := range ast.CollectNestedFields(parent.qf) {
			fl, ok := g.resolveFieldLink(parent.table, nf)
			if !ok {
				continue
			}
			childAlias := ast.GetAliasedName(nf)
			child := selectLevel{alias: childAlias, table: fl.target, qf: nf}
			parentKey, childKey := keyColumns(fl)
			addForce(parent.alias, parentKey)
			addForce(childAlias, childKey)
			e := selectEdge{parent: parent, child: child, fl: fl, parentKey: parentKey, childKey: childKey}
			edges = append(edges, e)
			childrenOf[parent.alias] = append(childrenOf[parent.alias], e)
			walk(child)
		}
	}
	walk(rootLevel)

	extraFor := map[string]string{}
	for _, e := range edges {
		extraFor[e.child.alias] = fmt.Sprintf(`%s in (select %s from %s)`,
			qident(e.childKey), qident(e.parentKey), `"selected__`+e.parent.alias+`"`)
	}

	var ctes []string
	selectedCols := map[string][]string{}
	for _, lvl := range order {
		ex := extra
		if lvl.alias != rootLevel.alias {
			ex = extraFor[lvl.alias]
		}
		cte, cols := g.emitSelectedCTE(lvl.alias, lvl.table, lvl.qf, ex, forceCols[lvl.alias], lvl.alias == rootLevel.alias)
		selectedCols[lvl.alias] = cols
		ctes = append(ctes, cte)
	}

	// json__L CTEs, innermost first: each level's per-row object merges
	// its own columns with any direct children's already-built
	// aggregations, then groups by whichever key its own parent will
	// join on. The root has no parent key to group by, so its rows
	// collapse into a single array instead.
	for i := len(order) - 1; i >= 0; i-- {
		lvl := order[i]
		isRoot := lvl.alias == rootLevel.alias

		var groupKey string
		var collapse bool
		if !isRoot {
			for _, e := range edges {
				if e.child.alias == lvl.alias {
					groupKey = e.childKey
					collapse = isToOne(e.fl)
					break
				}
			}
		}
		ctes = append(ctes, g.emitJSONCTE(lvl.alias, groupKey, collapse, isRoot, selectedCols[lvl.alias], childrenOf[lvl.alias]))
	}

	sql := fmt.Sprintf(`with %s select json_object('%s', coalesce((select %s from "json__%s"), jsonb('[]'))) as result`,
		strings.Join(ctes, ", "), rootLevel.alias, qident(rootLevel.alias), rootLevel.alias)
	return []Prepared{{Include: true, SQL: sql}}
}

// emitSelectedCTE builds a level's flat base selection (its own
// requested columns, identified by the record's primary key, plus any
// force-included join-key columns needed by the level above or below
// it, filtered by its own @where plus any join-key constraint from the
// enclosing level, and ordered and bounded by @sort/@limit/@offset only
// when isRoot) and returns the ordered list of column names it
// projects, for the json__ CTE above it to reference.
func (g *generator) emitSelectedCTE(alias string, table *typecheck.Table, qf *ast.QueryField, extraWhere string, force []string, isRoot bool) (string, []string) {
	pk, _ := ast.GetPrimaryIDFieldName(table.Record)
	seen := map[string]bool{}
	var colNames []string
	if pk != "" {
		colNames = append(colNames, pk)
		seen[pk] = true
	}
	for _, f := range force {
		if seen[f] {
			continue
		}
		seen[f] = true
		colNames = append(colNames, f)
	}
	for _, c := range ast.CollectNestedFields(qf) {
		if _, isLink := g.resolveFieldLink(table, c); isLink {
			continue
		}
		if seen[c.TargetName] {
			continue
		}
		seen[c.TargetName] = true
		colNames = append(colNames, c.TargetName)
	}
	parts := make([]string, len(colNames))
	for i, c := range colNames {
		parts[i] = qident(c)
	}

	where := renderWhereClause(qf)
	if extraWhere != "" {
		if where == "" {
			where = " where " + extraWhere
		} else {
			where += " and " + extraWhere
		}
	}
	tail := ""
	if isRoot {
		tail = renderOrderLimitOffset(qf)
	}
	sql := fmt.Sprintf("select %s from %s%s%s",
		strings.Join(parts, ", "), g.qualifiedTable(table), where, tail)
	return fmt.Sprintf(`"selected__%s" as (%s)`, alias, sql), colNames
}

// emitJSONCTE builds a level's per-row jsonb_object (its own requested
// columns plus, for each direct child, that child's coalesced
// aggregation under the child's alias) and aggregates those rows: for
// a non-root level, grouped by groupKey and either collapsed to one
// object (to-one) or gathered into a jsonb_group_array (to-many); for
// the root, gathered into a single jsonb_group_array with no grouping,
// since the root has no parent key to group by.
func (g *generator) emitJSONCTE(alias, groupKey string, collapse, isRoot bool, cols []string, children []selectEdge) string {
	pairs := make([]string, 0, len(cols)+len(children))
	for _, c := range cols {
		pairs = append(pairs, fmt.Sprintf("'%s', %s", c, qident(c)))
	}
	var joins []string
	for _, e := range children {
		empty := "jsonb('[]')"
		if isToOne(e.fl) {
			empty = "jsonb_object()"
		}
		childCTE := `"json__` + e.child.alias + `"`
		pairs = append(pairs, fmt.Sprintf("'%s', coalesce(%s.%s, %s)", e.child.alias, childCTE, e.child.alias, empty))
		joins = append(joins, fmt.Sprintf(`left join %s on %s.%s = "selected__%s".%s`,
			childCTE, childCTE, qident(e.childKey), alias, qident(e.parentKey)))
	}
	joinClause := ""
	if len(joins) > 0 {
		joinClause = " " + strings.Join(joins, " ")
	}

	if isRoot {
		inner := fmt.Sprintf(`select jsonb_object(%s) as obj from "selected__%s"%s`,
			strings.Join(pairs, ", "), alias, joinClause)
		agg := fmt.Sprintf(`select jsonb_group_array(obj) as %s from (%s)`, alias, inner)
		return fmt.Sprintf(`"json__%s" as (%s)`, alias, agg)
	}

	inner := fmt.Sprintf(`select %s, jsonb_object(%s) as obj from "selected__%s"%s`,
		qident(groupKey), strings.Join(pairs, ", "), alias, joinClause)
	var agg string
	if collapse {
		agg = fmt.Sprintf(`select %s, obj as %s from (%s)`, qident(groupKey), alias, inner)
	} else {
		agg = fmt.Sprintf(`select %s, jsonb_group_array(obj) as %s from (%s) group by %s`,
			qident(groupKey), alias, inner, qident(groupKey))
	}
	return fmt.Sprintf(`"json__%s" as (%s)`, alias, agg)
}
