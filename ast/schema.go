package ast

// Schema is one namespace's worth of definitions, as parsed from a single
// schema.pyre file. Namespace is derived from the file's path by the
// parser's caller (root schema.pyre => "default", schema/<name>/schema.pyre
// => "<name>"), not by the grammar itself.
type Schema struct {
	Path       string
	Namespace  string
	Definitions []Definition
}

// Definition is one top-level schema item: a record, a tagged union, the
// session record, or formatting ephemera (comments, blank-line runs) that
// the formatter must round-trip.
type Definition interface {
	definition()
}

// Record is a named table: an ordered list of fields, each either a
// column, a link, a permissions block, a `@tablename` override, a
// `@watch` marker, or formatting ephemera.
type Record struct {
	NameRange
	Name   string
	Fields []Field
}

func (*Record) definition() {}

// TaggedUnion is a sum type used as an enum-like column type. In SQL it
// materializes as a discriminator column plus one nullable column per
// variant payload field.
type TaggedUnion struct {
	NameRange
	Name     string
	Variants []Variant
}

func (*TaggedUnion) definition() {}

// Variant is one arm of a TaggedUnion, with an optional record-like
// payload (nil for a bare, payload-less variant).
type Variant struct {
	NameRange
	Name    string
	Payload []Column
}

// Session is the single distinguished record defining per-connection
// session fields, reachable in query expressions as `Session.field`.
// There is at most one per compilation; a schema may declare zero.
type Session struct {
	NameRange
	Name    string
	Columns []Column
}

func (*Session) definition() {}

// Comment is a `//`-to-end-of-line comment preserved verbatim so the
// formatter can round-trip it.
type Comment struct {
	Range Range
	Text  string
}

func (*Comment) definition() {}

// Lines is a run of blank lines, capped at two by the formatter but
// recorded with its original count so round-tripping can detect changes.
type Lines struct {
	Range Range
	Count int
}

func (*Lines) definition() {}

// Field is one member of a Record: a column, a link, a permissions
// block, a `@tablename` override, a `@watch` marker, or formatting
// ephemera (comment/blank run).
type Field interface {
	field()
}

func (*Column) field()      {}
func (*Link) field()        {}
func (*Permissions) field() {}
func (*TableName) field()   {}
func (*Watch) field()       {}
func (*Comment) field()     {}
func (*Lines) field()       {}

// Column is a scalar field: name, serialization type, nullability, and
// directives (`@id`, `@unique`, `@default`, `@index`).
type Column struct {
	NameRange
	Name       string
	Type       Type
	Nullable   bool
	Directives []ColumnDirective
}

// HasDirective reports whether the column carries a directive of the
// given kind.
func (c *Column) HasDirective(kind DirectiveKind) bool {
	for _, d := range c.Directives {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Default returns the column's `@default` expression and true, or a zero
// value and false if the column has none.
func (c *Column) Default() (Expr, bool) {
	for _, d := range c.Directives {
		if d.Kind == DirectiveDefault {
			return d.DefaultValue, true
		}
	}
	return nil, false
}

// DirectiveKind enumerates the column directive forms in §3/§4.2.
type DirectiveKind int

const (
	DirectiveID DirectiveKind = iota
	DirectiveUnique
	DirectiveDefault
	DirectiveIndex
)

// ColumnDirective is one `@id` / `@unique` / `@default(expr)` / `@index`
// annotation on a column.
type ColumnDirective struct {
	Range        Range
	Kind         DirectiveKind
	DefaultValue Expr // only set when Kind == DirectiveDefault
}

// Type is a column's declared serialization type: either a concrete
// storage kind or a reference (by name) to a tagged union the
// typechecker must resolve.
type Type struct {
	Range Range
	Kind  TypeKind
	// Named is set when Kind == TypeNamed: the name of a built-in or a
	// user-declared tagged union, resolved during typechecking.
	Named string
	// VectorKind/VectorDim are set when Kind == TypeVectorBlob.
	VectorKind string
	VectorDim  int
}

// TypeKind enumerates the concrete storage kinds of §3 plus the
// named-reference case that defers resolution to the typechecker.
type TypeKind int

const (
	TypeInteger TypeKind = iota
	TypeReal
	TypeText
	TypeBlob
	TypeDate
	TypeDateTime
	TypeJsonB
	TypeVectorBlob
	TypeNamed
)

// Link is a directed relation: a local column (or columns) and a
// qualified foreign target (schema.table.field). LocalColumn is empty
// when no local column is given explicitly (the inline form without a
// local_id, or the standalone `@link name { … }` form without `from:`);
// the link's own Name is then used as its local column.
type Link struct {
	NameRange
	Name          string
	LocalColumn   string
	ForeignSchema string
	ForeignTable  string
	ForeignField  string
	Nullable      bool
	// Reciprocal marks a derived rather than hand-written link. The
	// parser leaves it false; typecheck.ReciprocalLinks reports derived
	// links as separate ReciprocalLink values instead of setting it.
	Reciprocal bool
}

// Permissions is a `@permissions { … }` block: either a single
// star-permission where-expression, or a per-operation list.
type Permissions struct {
	Range Range
	// Star is set when the block is a single bare where-expression that
	// applies to every operation.
	Star *Expr
	// Rules is set when the block lists `{operation(,operation)* { where }}`
	// entries individually.
	Rules []PermissionRule
}

// PermissionRule gates a subset of operations (select/insert/update/delete)
// behind one where-expression.
type PermissionRule struct {
	Range      Range
	Operations []QueryOperation
	Where      Expr
}

// TableName is a `@tablename "…"` override for a record's default table
// name.
type TableName struct {
	Range Range
	Name  string
}

// Watch is a bare `@watch` marker flagging a table whose mutations
// should be delivered as live deltas to connected sessions.
type Watch struct {
	Range Range
}
