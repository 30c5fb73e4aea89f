// Package ast defines the data model for Pyre schemas and queries: every
// record, column, link, query field, and expression the parser produces,
// plus small helpers the typechecker, SQL generator, and formatter share.
//
// Nodes are built once by the parser and are thereafter immutable except
// for the normalization pass (see the typecheck package), which reorders
// columns and derives reciprocal links without mutating the parser's
// canonical tree.
package ast

import "fmt"

// Location is a single point in a source file: a byte offset plus the
// 1-indexed line and column a human would read it at. Both are carried
// because the byte offset is cheap to slice with and the line/column is
// what error rendering needs.
type Location struct {
	Offset int
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Range pairs the start and end locations of a syntactic construct.
type Range struct {
	Start Location
	End   Location
}

// Located wraps a value with the source range it was parsed from. The
// AST node types do not use it; they carry their own Range or NameRange
// fields.
type Located[T any] struct {
	Value T
	Range Range
}

// NameRange additionally tracks the narrower range of just a node's name
// token, separate from the range of the whole construct — pretty error
// messages point at the name, not the entire field or definition.
type NameRange struct {
	Range     Range
	NameRange Range
}
