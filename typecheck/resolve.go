package typecheck

import "pyreql/ast"

// Resolve materializes a Table for every record across every namespace,
// checking duplicate column names, unknown column types, link target
// existence, and table-name collisions within a namespace. It must run
// after Populate so tagged unions and every record name are known.
func Resolve(ctx *Context) ErrorList {
	var errs ErrorList

	// Pass 1: materialize every table across every namespace first, so
	// pass 2's link checks see the full set regardless of which
	// namespace (map iteration order is unspecified) or declaration
	// order a cross-namespace link target happens to live in.
	for ns, schema := range ctx.Schemas {
		if ctx.TablesByNamespace[ns] == nil {
			ctx.TablesByNamespace[ns] = map[string]*Table{}
		}
		tableNames := map[string]string{} // tablename -> record name, for collision detection

		for _, def := range schema.Definitions {
			rec, ok := def.(*ast.Record)
			if !ok {
				continue
			}

			tableName := ast.GetTablename(rec)
			if owner, exists := tableNames[tableName]; exists && owner != rec.Name {
				errs = append(errs, newErr(schema.Path, ErrTableNameCollision,
					"table name \""+tableName+"\" used by both \""+owner+"\" and \""+rec.Name+"\"",
					rec.Range.Start))
			}
			tableNames[tableName] = rec.Name

			key := ast.Decapitalize(rec.Name)
			ctx.TablesByNamespace[ns][key] = &Table{Namespace: ns, Record: rec, TableName: tableName}
		}
	}

	// Pass 2: check columns and link targets now that every table is
	// materialized.
	for ns, schema := range ctx.Schemas {
		for _, def := range schema.Definitions {
			rec, ok := def.(*ast.Record)
			if !ok {
				continue
			}
			errs = append(errs, checkRecordColumns(ctx, ns, schema.Path, rec)...)
			errs = append(errs, checkRecordLinks(ctx, ns, schema.Path, rec)...)
		}
	}

	errs = append(errs, computeSyncLayers(ctx)...)
	return errs
}

func checkRecordColumns(ctx *Context, ns, path string, rec *ast.Record) ErrorList {
	var errs ErrorList
	seen := map[string]bool{}
	for _, c := range ast.CollectColumns(rec) {
		if seen[c.Name] {
			errs = append(errs, newErr(path, ErrDuplicateField,
				"duplicate column \""+c.Name+"\" in \""+rec.Name+"\"", c.Range.Start))
			continue
		}
		seen[c.Name] = true

		if c.Type.Kind == ast.TypeNamed {
			if _, ok := ctx.ResolveType(ns, c.Type.Named); !ok {
				errs = append(errs, newErr(path, ErrUnknownType,
					"unknown type \""+c.Type.Named+"\" for column \""+c.Name+"\"", c.Type.Range.Start))
			}
		}
	}
	for _, l := range ast.CollectLinks(rec) {
		if seen[l.Name] {
			errs = append(errs, newErr(path, ErrDuplicateField,
				"duplicate field \""+l.Name+"\" in \""+rec.Name+"\"", l.Range.Start))
			continue
		}
		seen[l.Name] = true
	}
	return errs
}

func checkRecordLinks(ctx *Context, ns, path string, rec *ast.Record) ErrorList {
	var errs ErrorList
	for _, l := range ast.CollectLinks(rec) {
		targetNS := l.ForeignSchema
		if targetNS == "" {
			targetNS = ns
		}
		target, ok := ctx.Table(targetNS, ast.Decapitalize(l.ForeignTable))
		if !ok {
			errs = append(errs, newErr(path, ErrLinkTargetMissing,
				"link \""+l.Name+"\" target table \""+l.ForeignTable+"\" not found", l.Range.Start))
			continue
		}
		found := false
		for _, c := range ast.CollectColumns(target.Record) {
			if c.Name == l.ForeignField {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, newErr(path, ErrLinkTargetMissing,
				"link \""+l.Name+"\" target field \""+l.ForeignTable+"."+l.ForeignField+"\" not found",
				l.Range.Start))
		}
	}
	return errs
}
