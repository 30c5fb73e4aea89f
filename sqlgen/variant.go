package sqlgen

import (
	"fmt"

	"pyreql/ast"
	"pyreql/typecheck"
)

// payloadVariantColumn is the naming convention for one variant's
// payload field once materialized as a column of its own — mirrors
// diff.payloadVariantColumn so the DDL diff emits and the DML the
// generator writes agree on the same column names (§9 "Tagged unions
// as columns").
func payloadVariantColumn(ownerColumn, variantName, fieldName string) string {
	return fmt.Sprintf("%s__%s__%s", ownerColumn, variantName, fieldName)
}

// resolveVariantSet reports whether a mutation field sets a
// tagged-union-typed column to a variant literal, returning the
// union's resolved shape and the chosen variant's name.
func (g *generator) resolveVariantSet(table *typecheck.Table, c *ast.QueryField) (*typecheck.OneOf, string, bool) {
	ve, ok := c.SetValue.(*ast.VariantExpr)
	if !ok {
		return nil, "", false
	}
	for _, col := range ast.CollectColumns(table.Record) {
		if col.Name != c.TargetName || col.Type.Kind != ast.TypeNamed {
			continue
		}
		entry, ok := g.ctx.ResolveType(table.Namespace, col.Type.Named)
		if !ok || entry.Kind != typecheck.KindOneOf {
			return nil, "", false
		}
		return entry.OneOf, ve.Variant, true
	}
	return nil, "", false
}

// variantPayloadColumns lists every payload column a variant switch on
// ownerColumn must null out: every variant's payload fields except
// whichever the query already sets explicitly (there is no grammar yet
// for supplying a variant's own payload values on write, so today this
// is always every payload column of every variant — written this way
// so it keeps doing the right thing once that grammar exists).
func (g *generator) variantPayloadColumns(oneOf *typecheck.OneOf, ownerColumn string, alreadySet map[string]bool) []string {
	var cols []string
	for _, v := range oneOf.Variants {
		for _, p := range v.Payload {
			name := payloadVariantColumn(ownerColumn, v.Name, p.Name)
			if alreadySet[name] {
				continue
			}
			cols = append(cols, name)
		}
	}
	return cols
}
