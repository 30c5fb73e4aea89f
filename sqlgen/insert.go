package sqlgen

import (
	"fmt"
	"strings"

	"pyreql/ast"
	"pyreql/typecheck"
)

// compileInsertRoot implements §4.4.2's temp-table insert choreography.
// parentLink carries the enclosing level's link and "inserted_X" temp
// table, or is nil for the outermost insert.
func (g *generator) compileInsertRoot(table *typecheck.Table, qf *ast.QueryField, parentLink *linkedParent) []Prepared {
	var stmts []Prepared

	cols := ast.CollectNestedFields(qf)
	var colNames, values []string
	set := map[string]bool{}

	if parentLink != nil {
		colNames = append(colNames, effectiveLocalColumn(parentLink.link))
		values = append(values, fmt.Sprintf("%s.id", parentLink.tempTable))
	}
	for _, c := range cols {
		if _, isLink := g.resolveFieldLink(table, c); isLink {
			continue
		}
		if c.SetValue == nil {
			continue
		}
		set[c.TargetName] = true
		colNames = append(colNames, c.TargetName)
		values = append(values, renderExpr(c.SetValue))
	}
	// A discriminator write on insert leaves every variant's payload
	// columns unset, which SQLite defaults to null — but name them
	// explicitly so an inserted row's shape doesn't depend on column
	// declaration order across a migration.
	for _, c := range cols {
		oneOf, _, ok := g.resolveVariantSet(table, c)
		if !ok {
			continue
		}
		for _, col := range g.variantPayloadColumns(oneOf, c.TargetName, set) {
			set[col] = true
			colNames = append(colNames, col)
			values = append(values, "null")
		}
	}
	if hasUpdatedAt(table) && !set["updatedAt"] {
		colNames = append(colNames, "updatedAt")
		values = append(values, "unixepoch()")
	}

	quoted := make([]string, len(colNames))
	for i, c := range colNames {
		quoted[i] = qident(c)
	}

	var insertSQL string
	if parentLink != nil {
		insertSQL = fmt.Sprintf("insert into %s (%s) select %s from %s",
			g.qualifiedTable(table), strings.Join(quoted, ", "), strings.Join(values, ", "), parentLink.tempTable)
	} else {
		insertSQL = fmt.Sprintf("insert into %s (%s) values (%s)",
			g.qualifiedTable(table), strings.Join(quoted, ", "), strings.Join(values, ", "))
	}
	stmts = append(stmts, Prepared{Include: false, SQL: insertSQL})

	var nestedInserts []*ast.QueryField
	var nestedLinks []*fieldLink
	for _, c := range cols {
		fl, isLink := g.resolveFieldLink(table, c)
		if isLink && !fl.forward && c.SetValue == nil && hasNestedSets(c) {
			nestedInserts = append(nestedInserts, c)
			nestedLinks = append(nestedLinks, fl)
		}
	}

	if len(nestedInserts) == 0 {
		// No nested inserts: the plain insert is the sole statement,
		// included only when the query requests return fields.
		stmts[len(stmts)-1].Include = len(cols) > 0 && returnsColumns(qf)
		return stmts
	}

	tempName := g.nextTempName("inserted_" + table.TableName)
	stmts = append(stmts, Prepared{Include: false, SQL: fmt.Sprintf(
		`create temp table %s as select last_insert_rowid() as id`, tempName)})

	for i, nf := range nestedInserts {
		fl := nestedLinks[i]
		stmts = append(stmts, g.compileInsertRoot(fl.target, nf, &linkedParent{link: fl.link, tempTable: tempName})...)
	}

	selectStmts := g.compileSelectRootConstrained(table, qf, fmt.Sprintf("rowid in (select id from %s)", tempName))
	if len(selectStmts) > 0 {
		selectStmts[len(selectStmts)-1].Include = true
	}
	stmts = append(stmts, selectStmts...)

	stmts = append(stmts, Prepared{Include: false, SQL: "drop table " + tempName})
	return stmts
}

// linkedParent carries the enclosing insert level's temp table down
// into a nested insert so the nested insert can source its foreign key
// from it.
type linkedParent struct {
	link      *ast.Link
	tempTable string
}

func hasUpdatedAt(table *typecheck.Table) bool {
	for _, c := range ast.CollectColumns(table.Record) {
		if c.Name == "updatedAt" {
			return true
		}
	}
	return false
}

func hasNestedSets(qf *ast.QueryField) bool {
	for _, nf := range ast.CollectNestedFields(qf) {
		if nf.SetValue != nil {
			return true
		}
	}
	return false
}

func returnsColumns(qf *ast.QueryField) bool {
	for _, nf := range ast.CollectNestedFields(qf) {
		if nf.SetValue == nil {
			return true
		}
	}
	return false
}

