package typecheck

import "pyreql/ast"

// TypeKind is the resolved, namespace-independent shape of a name once
// populate/resolve has run: either one of the built-in storage kinds or
// a user-declared sum type.
type TypeKind int

const (
	KindBuiltin TypeKind = iota
	KindOneOf
)

// TypeEntry is one entry in Context.Types: a built-in scalar type or a
// resolved tagged union.
type TypeEntry struct {
	Name  string
	Kind  TypeKind
	Scalar ast.TypeKind // meaningful when Kind == KindBuiltin
	OneOf *OneOf        // meaningful when Kind == KindOneOf
}

// OneOf is a tagged union interpreted as a type: its variants and the
// payload columns each carries, used both for column materialization
// (discriminator + nullable payload columns) and for checking variant
// literals in expressions.
type OneOf struct {
	Name     string
	Variants []VariantType
}

// VariantType is one arm of a OneOf.
type VariantType struct {
	Name    string
	Payload []*ast.Column
}

func (o *OneOf) Variant(name string) (*VariantType, bool) {
	for i := range o.Variants {
		if o.Variants[i].Name == name {
			return &o.Variants[i], true
		}
	}
	return nil, false
}

// Table is a materialized record: the namespace it lives in, the
// record AST it was built from, its resolved SQL table name, and its
// sync layer (§4.3).
type Table struct {
	Namespace string
	Record    *ast.Record
	TableName string
	SyncLayer int
}

// Context is built in two phases (populate, then resolve) and lives for
// the duration of one compilation. It owns every interned table and
// type; per-query variables live in each query's QueryInfo. AST
// fragments are borrowed from it, never copied across mutation
// boundaries.
type Context struct {
	// Types holds the built-in scalar types, shared across namespaces.
	Types map[string]*TypeEntry

	// OneOfByNamespace maps namespace -> tagged union name -> resolved OneOf.
	OneOfByNamespace map[string]map[string]*OneOf

	// TablesByNamespace maps namespace -> decapitalized record name -> Table.
	TablesByNamespace map[string]map[string]*Table

	// definedNames tracks every record/tagged-union/session name per
	// namespace, used only to detect duplicate definitions during populate.
	definedNames map[string]map[string]bool

	// Schemas is every namespace's parsed Schema, kept for cross-namespace
	// link target resolution.
	Schemas map[string]*ast.Schema

	// Session is the single declared session record, if any. Its
	// namespace is recorded so `Session.x` type-checks can find it
	// regardless of which namespace a query's root table lives in.
	Session   *ast.Session
	SessionNS string
}

func newContext() *Context {
	return &Context{
		Types:             builtinTypes(),
		OneOfByNamespace:   map[string]map[string]*OneOf{},
		TablesByNamespace:  map[string]map[string]*Table{},
		definedNames:       map[string]map[string]bool{},
		Schemas:            map[string]*ast.Schema{},
	}
}

// ResolveType looks up a column's declared type name against the
// built-ins first, then the given namespace's tagged unions.
func (c *Context) ResolveType(ns, name string) (*TypeEntry, bool) {
	if t, ok := c.Types[name]; ok {
		return t, true
	}
	if byName, ok := c.OneOfByNamespace[ns]; ok {
		if oneOf, ok := byName[name]; ok {
			return &TypeEntry{Name: name, Kind: KindOneOf, OneOf: oneOf}, true
		}
	}
	return nil, false
}

// Table looks up a table by namespace and decapitalized record/table
// name, searching every namespace when ns is empty (unqualified
// references default-namespace first, as declared in source, but
// cross-namespace link targets always specify their namespace
// explicitly via the three-part qualified form).
func (c *Context) Table(ns, name string) (*Table, bool) {
	if ns != "" {
		byName, ok := c.TablesByNamespace[ns]
		if !ok {
			return nil, false
		}
		t, ok := byName[name]
		return t, ok
	}
	if t, ok := c.TablesByNamespace["default"][name]; ok {
		return t, true
	}
	for _, byName := range c.TablesByNamespace {
		if t, ok := byName[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func builtinTypes() map[string]*TypeEntry {
	mk := func(name string, kind ast.TypeKind) *TypeEntry {
		return &TypeEntry{Name: name, Kind: KindBuiltin, Scalar: kind}
	}
	return map[string]*TypeEntry{
		"String":     mk("String", ast.TypeText),
		"Int":        mk("Int", ast.TypeInteger),
		"Float":      mk("Float", ast.TypeReal),
		"Bool":       mk("Bool", ast.TypeInteger),
		"DateTime":   mk("DateTime", ast.TypeDateTime),
		"Date":       mk("Date", ast.TypeDate),
		"Blob":       mk("Blob", ast.TypeBlob),
		"VectorBlob": mk("VectorBlob", ast.TypeVectorBlob),
		"JSON":       mk("JSON", ast.TypeJsonB),
	}
}
