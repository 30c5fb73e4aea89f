package typecheck

import "pyreql/ast"

// CanonicalColumns returns a table's columns in the fixed order the SQL
// generator and formatter both rely on: the primary key first, then
// every other plain column in declaration order, then nothing else —
// links are addressed separately since they don't occupy a column
// position of their own in a `select *`-style row.
func CanonicalColumns(rec *ast.Record) []*ast.Column {
	cols := ast.CollectColumns(rec)
	out := make([]*ast.Column, 0, len(cols))

	pk, hasPK := ast.GetPrimaryIDFieldName(rec)
	if hasPK {
		for _, c := range cols {
			if c.Name == pk {
				out = append(out, c)
				break
			}
		}
	}
	for _, c := range cols {
		if hasPK && c.Name == pk {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CanonicalFields returns a record's columns and links in the full
// canonical order §4.3/§4.8 specify: primary key, then the remaining
// plain columns, then links — each group preserving its original
// declaration order. The formatter uses this to re-order fields before
// printing. Only columns and links are returned; permissions,
// @tablename, @watch, comments and blank runs are not included.
func CanonicalFields(rec *ast.Record) []ast.Field {
	out := make([]ast.Field, 0, len(rec.Fields))
	for _, c := range CanonicalColumns(rec) {
		out = append(out, c)
	}
	for _, l := range ast.CollectLinks(rec) {
		out = append(out, l)
	}
	return out
}

// ReciprocalLink is a link derived from the opposite direction of a
// declared many-to-one link: given `Comment.authorId @link(User.id)`,
// ReciprocalLinks(User) reports a to-many link named "comments" back to
// Comment. It is computed on demand rather than stored in the parsed
// tree, so the formatter never has to round-trip a link nobody wrote.
type ReciprocalLink struct {
	// Name is the field name the SQL generator and client would expose,
	// derived from the owning record's decapitalized name by pluralize:
	// "es" after s/x/z, "ies" for a consonant followed by "y", else "s".
	Name string
	// FromNamespace/FromTable/FromField identify the declared link's own
	// side: the table and local column that points at this one.
	FromNamespace string
	FromTable     string
	FromField     string
	// Link is the declared link being reflected.
	Link *ast.Link
}

// ReciprocalLinks returns every inbound many-to-one link pointing at
// table, derived fresh from the full set of declared links across every
// namespace.
func ReciprocalLinks(ctx *Context, targetNS, targetTableName string) []ReciprocalLink {
	var out []ReciprocalLink
	for ns, byName := range ctx.TablesByNamespace {
		for _, t := range byName {
			for _, l := range ast.CollectLinks(t.Record) {
				foreignNS := l.ForeignSchema
				if foreignNS == "" {
					foreignNS = ns
				}
				if foreignNS != targetNS || ast.Decapitalize(l.ForeignTable) != targetTableName {
					continue
				}
				out = append(out, ReciprocalLink{
					Name:          pluralize(ast.Decapitalize(t.Record.Name)),
					FromNamespace: ns,
					FromTable:     ast.Decapitalize(t.Record.Name),
					FromField:     effectiveLocalColumn(l),
					Link:          l,
				})
			}
		}
	}
	return out
}

func pluralize(name string) string {
	if name == "" {
		return name
	}
	switch name[len(name)-1] {
	case 's', 'x', 'z':
		return name + "es"
	case 'y':
		if len(name) > 1 && !isVowel(name[len(name)-2]) {
			return name[:len(name)-1] + "ies"
		}
	}
	return name + "s"
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
