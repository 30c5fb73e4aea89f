package ast

import (
	"fmt"
	"strings"
)

// CollectColumns returns a record's column fields in declaration order,
// skipping links, permissions, directives, and formatting ephemera.
func CollectColumns(r *Record) []*Column {
	var out []*Column
	for _, f := range r.Fields {
		if c, ok := f.(*Column); ok {
			out = append(out, c)
		}
	}
	return out
}

// CollectLinks returns a record's link fields in declaration order.
func CollectLinks(r *Record) []*Link {
	var out []*Link
	for _, f := range r.Fields {
		if l, ok := f.(*Link); ok {
			out = append(out, l)
		}
	}
	return out
}

// CollectPermissions returns a record's permissions block, or nil if it
// declares none.
func CollectPermissions(r *Record) *Permissions {
	for _, f := range r.Fields {
		if p, ok := f.(*Permissions); ok {
			return p
		}
	}
	return nil
}

// HasWatch reports whether the record carries a bare `@watch` marker.
func HasWatch(r *Record) bool {
	for _, f := range r.Fields {
		if _, ok := f.(*Watch); ok {
			return true
		}
	}
	return false
}

// GetTablename returns the record's SQL table name: the `@tablename`
// override if present, else the decapitalized record name.
func GetTablename(r *Record) string {
	for _, f := range r.Fields {
		if tn, ok := f.(*TableName); ok {
			return tn.Name
		}
	}
	return Decapitalize(r.Name)
}

// Decapitalize lower-cases the first rune of s, leaving the rest
// untouched. Record names are PascalCase; table names are the
// camelCase form of the same word.
func Decapitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// GetPrimaryIDFieldName returns the name of the record's `@id` column
// and true, or "" and false if it declares none.
func GetPrimaryIDFieldName(r *Record) (string, bool) {
	for _, c := range CollectColumns(r) {
		if IsPrimaryKey(c) {
			return c.Name, true
		}
	}
	return "", false
}

// IsPrimaryKey reports whether c carries the `@id` directive.
func IsPrimaryKey(c *Column) bool {
	return c.HasDirective(DirectiveID)
}

// LinkedToUniqueField reports whether l's declared foreign field is the
// target record's primary key or a `@unique` column — the condition
// under which the SQL generator may collapse a to-many JSON aggregation
// into a single `jsonb_object` (see §4.4.1 step 3).
func LinkedToUniqueField(l *Link, target *Record) bool {
	for _, c := range CollectColumns(target) {
		if c.Name != l.ForeignField {
			continue
		}
		return IsPrimaryKey(c) || c.HasDirective(DirectiveUnique)
	}
	return false
}

// CollectQueryFields returns the top-level query fields of q, skipping
// comments and blank-line runs.
func CollectQueryFields(q *Query) []*QueryField {
	var out []*QueryField
	for _, f := range q.Fields {
		if qf, ok := f.(*QueryField); ok {
			out = append(out, qf)
		}
	}
	return out
}

// CollectQueryArgs returns q's declared argument list (already ordered
// by the parser).
func CollectQueryArgs(q *Query) []Argument {
	return q.Args
}

// CollectNestedFields returns a QueryField's nested query fields,
// skipping directives and formatting ephemera.
func CollectNestedFields(qf *QueryField) []*QueryField {
	var out []*QueryField
	for _, a := range qf.Args {
		if nested, ok := a.(*QueryField); ok {
			out = append(out, nested)
		}
	}
	return out
}

// GetWhere returns qf's `@where` clause, or nil.
func GetWhere(qf *QueryField) *WhereArg {
	for _, a := range qf.Args {
		if w, ok := a.(*WhereArg); ok {
			return w
		}
	}
	return nil
}

// GetSorts returns qf's `@sort` clauses in declaration order.
func GetSorts(qf *QueryField) []*SortArg {
	var out []*SortArg
	for _, a := range qf.Args {
		if s, ok := a.(*SortArg); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetLimit returns qf's `@limit` clause, or nil.
func GetLimit(qf *QueryField) *LimitArg {
	for _, a := range qf.Args {
		if l, ok := a.(*LimitArg); ok {
			return l
		}
	}
	return nil
}

// GetOffset returns qf's `@offset` clause, or nil.
func GetOffset(qf *QueryField) *OffsetArg {
	for _, a := range qf.Args {
		if o, ok := a.(*OffsetArg); ok {
			return o
		}
	}
	return nil
}

// GetAliasedName returns qf's alias if set, else its target field name.
func GetAliasedName(qf *QueryField) string {
	if qf.Alias != "" {
		return qf.Alias
	}
	return qf.TargetName
}

// GetSelectAlias returns the stable join-scoped column alias the SQL
// generator uses for qf under the given table alias: "{table}__{name}".
func GetSelectAlias(tableAlias string, qf *QueryField) string {
	return fmt.Sprintf("%s__%s", tableAlias, GetAliasedName(qf))
}
