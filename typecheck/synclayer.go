package typecheck

import "pyreql/ast"

// tableKey is a namespace-qualified table identity used as a graph node
// in the sync-layer computation.
type tableKey struct {
	ns   string
	name string
}

// effectiveLocalColumn returns the name of the column a link occupies
// on its own table: the explicit LocalColumn for the standalone
// `@link name { from: …, to: … }` form, or the link's own field name
// for the inline `name @link(…)` shorthand, which has no separate
// column declaration.
func effectiveLocalColumn(l *ast.Link) string {
	if l.LocalColumn != "" {
		return l.LocalColumn
	}
	return l.Name
}

// linkIsNullable reports whether a link's local column is nullable:
// the referenced column's own flag for the standalone form, or the
// link's own Nullable marker (the trailing "?" on the inline shorthand)
// otherwise.
func linkIsNullable(rec *ast.Record, l *ast.Link) bool {
	local := effectiveLocalColumn(l)
	for _, c := range ast.CollectColumns(rec) {
		if c.Name == local {
			return c.Nullable
		}
	}
	return l.Nullable
}

// requiredDependency reports whether l is a "non-nullable many-to-one
// link" per §4.3: its local column is not the table's primary key and
// is not nullable. Such links constrain the sync layer and must be
// acyclic.
func requiredDependency(rec *ast.Record, l *ast.Link) bool {
	if linkIsNullable(rec, l) {
		return false
	}
	pk, ok := ast.GetPrimaryIDFieldName(rec)
	if ok && effectiveLocalColumn(l) == pk {
		return false
	}
	return true
}

// computeSyncLayers assigns every table a non-negative integer, one
// more than the maximum layer of any table it required-depends on,
// detecting cycles through required links along the way.
func computeSyncLayers(ctx *Context) ErrorList {
	var errs ErrorList

	deps := map[tableKey][]tableKey{}
	var keys []tableKey
	for ns, byName := range ctx.TablesByNamespace {
		for name, t := range byName {
			k := tableKey{ns, name}
			keys = append(keys, k)
			for _, l := range ast.CollectLinks(t.Record) {
				if !requiredDependency(t.Record, l) {
					continue
				}
				targetNS := l.ForeignSchema
				if targetNS == "" {
					targetNS = ns
				}
				target, ok := ctx.Table(targetNS, ast.Decapitalize(l.ForeignTable))
				if !ok {
					continue // already reported as LinkTargetMissing
				}
				deps[k] = append(deps[k], tableKey{target.Namespace, ast.Decapitalize(target.Record.Name)})
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[tableKey]int{}
	layer := map[tableKey]int{}
	var cyclic ErrorList

	var visit func(k tableKey) int
	visit = func(k tableKey) int {
		switch color[k] {
		case black:
			return layer[k]
		case gray:
			t := ctx.TablesByNamespace[k.ns][k.name]
			path := ""
			if s, ok := ctx.Schemas[k.ns]; ok {
				path = s.Path
			}
			cyclic = append(cyclic, newErr(path, ErrSyncLayerCycle,
				"sync layer cycle through required link on \""+t.Record.Name+"\"", t.Record.Range.Start))
			return 0
		}
		color[k] = gray
		max := -1
		for _, dep := range deps[k] {
			if _, ok := ctx.TablesByNamespace[dep.ns][dep.name]; !ok {
				continue
			}
			if l := visit(dep); l > max {
				max = l
			}
		}
		color[k] = black
		layer[k] = max + 1
		return layer[k]
	}

	for _, k := range keys {
		visit(k)
	}

	for _, k := range keys {
		ctx.TablesByNamespace[k.ns][k.name].SyncLayer = layer[k]
	}

	errs = append(errs, cyclic...)
	return errs
}
