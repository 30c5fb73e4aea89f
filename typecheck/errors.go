// Package typecheck resolves names, infers parameter types, enforces
// permission semantics, computes the topological sync layer over
// tables, and annotates queries with variable usage. It turns parsed
// ast.Schema/ast.QueryList values into a Context plus per-query
// QueryInfo that the sqlgen package compiles from.
package typecheck

import (
	"fmt"

	"pyreql/ast"
)

// ErrorType discriminates the stage and shape of a single reported
// error (§7). Schema errors abort before query checking; within each
// stage, all errors for one schema or one query are accumulated and
// reported together rather than stopping at the first.
type ErrorType int

const (
	// Schema errors.
	ErrDuplicateDefinition ErrorType = iota
	ErrDuplicateField
	ErrDuplicateVariant
	ErrUnknownType
	ErrUnknownField
	ErrLinkTargetMissing
	ErrSyncLayerCycle
	ErrTableNameCollision

	// Query errors.
	ErrUnknownTable
	ErrQueryUnknownField
	ErrUnusedParam
	ErrUndeclaredParam
	ErrTypeMismatch
	ErrOperatorTypeMismatch
	ErrWhereRequired
	ErrInvalidSet
	ErrInvalidLimit
)

func (e ErrorType) String() string {
	switch e {
	case ErrDuplicateDefinition:
		return "DuplicateDefinition"
	case ErrDuplicateField:
		return "DuplicateField"
	case ErrDuplicateVariant:
		return "DuplicateVariant"
	case ErrUnknownType:
		return "UnknownType"
	case ErrUnknownField:
		return "UnknownField"
	case ErrLinkTargetMissing:
		return "LinkTargetMissing"
	case ErrSyncLayerCycle:
		return "SyncLayerCycle"
	case ErrTableNameCollision:
		return "TableNameCollision"
	case ErrUnknownTable:
		return "UnknownTable"
	case ErrQueryUnknownField:
		return "UnknownField"
	case ErrUnusedParam:
		return "UnusedParam"
	case ErrUndeclaredParam:
		return "UndeclaredParam"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrOperatorTypeMismatch:
		return "OperatorTypeMismatch"
	case ErrWhereRequired:
		return "WhereRequired"
	case ErrInvalidSet:
		return "InvalidSet"
	case ErrInvalidLimit:
		return "InvalidLimit"
	default:
		return "Unknown"
	}
}

// Error is the single typecheck error type, carrying a filepath, an
// ErrorType discriminator, and a non-empty list of source locations.
type Error struct {
	Path      string
	Type      ErrorType
	Message   string
	Locations []ast.Location
}

func (e *Error) Error() string {
	loc := ""
	if len(e.Locations) > 0 {
		loc = e.Locations[0].String()
	}
	return fmt.Sprintf("%s:%s: %s: %s", e.Path, loc, e.Type, e.Message)
}

func newErr(path string, typ ErrorType, msg string, locs ...ast.Location) *Error {
	return &Error{Path: path, Type: typ, Message: msg, Locations: locs}
}

// ErrorList accumulates every error for one schema or one query before
// returning, per §7 ("all of a schema's errors are reported together").
type ErrorList []*Error

func (l ErrorList) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	msg := l[0].Error()
	if len(l) > 1 {
		msg += fmt.Sprintf(" (and %d more error(s))", len(l)-1)
	}
	return msg
}
