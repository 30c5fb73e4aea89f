package ast

// QueryOperation is the kind of operation a Query performs.
type QueryOperation int

const (
	OpSelect QueryOperation = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (op QueryOperation) String() string {
	switch op {
	case OpSelect:
		return "query"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// QueryList is the ordered set of queries parsed from one .pyre file.
type QueryList struct {
	Path      string
	Namespace string
	Queries   []*Query
}

// Query is one named operation: its argument signature and its tree of
// top-level query fields.
type Query struct {
	NameRange
	Operation QueryOperation
	Name      string
	Args      []Argument
	Fields    []TopField
}

// Argument is one declared query parameter. Type may be the zero value
// when the argument's type is left for the typechecker to infer from
// first use.
type Argument struct {
	NameRange
	Name string
	Type *Type
}

// TopField is one item directly inside a query's `{ }` body: a comment,
// a blank-line run, or a QueryField.
type TopField interface {
	topField()
}

func (*QueryField) topField() {}
func (*Comment) topField()    {}
func (*Lines) topField()      {}

// QueryField selects or mutates one column or link. Nested selections
// and directives live in Args; SetValue is non-nil only for mutation
// queries.
type QueryField struct {
	NameRange
	// TargetName is the column or link name on the enclosing table.
	TargetName string
	// Alias is the name the result is returned under; empty means
	// TargetName is used (see GetAliasedName).
	Alias string
	// SetValue is the `= expr` value for insert/update fields.
	SetValue Expr
	Args     []ArgField
}

// ArgField is one item inside a QueryField's nested `{ }` block: a
// comment, a blank-line run, a nested QueryField (link traversal), or a
// directive (@where/@sort/@limit/@offset).
type ArgField interface {
	argField()
}

func (*QueryField) argField() {}
func (*Comment) argField()    {}
func (*Lines) argField()      {}
func (*WhereArg) argField()   {}
func (*SortArg) argField()    {}
func (*LimitArg) argField()   {}
func (*OffsetArg) argField()  {}

// WhereArg is an `@where { … }` clause.
type WhereArg struct {
	Range Range
	Expr  Expr
}

// SortDirection is the direction of an `@sort` clause.
type SortDirection int

const (
	SortAsc SortDirection = iota
	SortDesc
)

// SortArg is one `@sort(column, asc|desc)` clause. Multiple SortArgs on
// the same field compose in declaration order.
type SortArg struct {
	Range     Range
	Column    string
	Direction SortDirection
}

// LimitArg is an `@limit(n)` clause; Value is an int literal or an
// int-typed variable reference.
type LimitArg struct {
	Range Range
	Value Expr
}

// OffsetArg is an `@offset(n)` clause, same shape as LimitArg.
type OffsetArg struct {
	Range Range
	Value Expr
}

// --- Where expressions -----------------------------------------------

// Expr is the boolean/value expression tree used by `@where`, `@sort`
// bounds, `@limit`/`@offset`, `= expr` set values, and permission
// predicates.
type Expr interface {
	expr()
}

func (*AndExpr) expr()       {}
func (*OrExpr) expr()        {}
func (*Comparison) expr()    {}
func (*LiteralExpr) expr()   {}
func (*VarExpr) expr()       {}
func (*FuncCallExpr) expr()  {}
func (*VariantExpr) expr()   {}
func (*ColumnRefExpr) expr() {}

// AndExpr is a conjunction of two sub-expressions.
type AndExpr struct {
	Range Range
	Left  Expr
	Right Expr
}

// OrExpr is a disjunction of two sub-expressions.
type OrExpr struct {
	Range Range
	Left  Expr
	Right Expr
}

// Operator is one comparison/membership/pattern operator.
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpIn
	OpNotIn
	OpLike
	OpNotLike
)

// SQLSymbol returns the rendered SQL spelling of the operator.
func (o Operator) SQLSymbol() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLte:
		return "<="
	case OpGte:
		return ">="
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpLike:
		return "like"
	case OpNotLike:
		return "not like"
	default:
		return "?"
	}
}

// Comparison is a leaf of the where-expression tree: `Column(is_session,
// name) Operator Value`.
type Comparison struct {
	Range     Range
	Column    ColumnRef
	Operator  Operator
	Value     Expr
}

// ColumnRef names a comparison's left-hand column, either on the row
// being matched or on the session.
type ColumnRef struct {
	Range     Range
	Name      string
	IsSession bool
}

// ColumnRefExpr lets a ColumnRef also appear on the right-hand side of a
// comparison (column-to-column comparisons), and as a Value in its own
// right.
type ColumnRefExpr struct {
	Range Range
	Ref    ColumnRef
}

// LiteralKind enumerates literal value shapes.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralBool
	LiteralNull
	LiteralArray
)

// LiteralExpr is a constant value: string/int/float/bool/null, or an
// array literal used with `in`/`not in`.
type LiteralExpr struct {
	Range  Range
	Kind   LiteralKind
	String string
	Int    int64
	Float  float64
	Bool   bool
	Array  []Expr
}

// VarExpr is a reference to a query argument (`$name`) or a session
// field (`Session.name`).
type VarExpr struct {
	Range     Range
	Name      string
	IsSession bool
	// SessionField is set when IsSession is true: the field name on the
	// session record ("userId" for `Session.userId`).
	SessionField string
}

// FuncCallExpr is a call to one of the built-in SQL functions in the
// typechecker's function table.
type FuncCallExpr struct {
	Range Range
	Name  string
	Args  []Expr
}

// VariantExpr is a tagged-union literal, e.g. `Status.Active`.
type VariantExpr struct {
	Range   Range
	Union   string
	Variant string
}
