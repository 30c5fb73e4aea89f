package parser

import (
	"fmt"

	"pyreql/ast"
)

// Expecting tags what the parser wanted to see at the point it failed,
// drawn from a fixed enumeration (§4.2). It is deliberately coarse —
// enough for pretty error rendering to say something specific, not a
// full expected-token set.
type Expecting int

const (
	ExpectingPyreFile Expecting = iota
	ExpectingSchemaDefinition
	ExpectingSchemaColumn
	ExpectingSchemaAtDirective
	ExpectingLinkDirective
	ExpectingRecordName
	ExpectingFieldName
	ExpectingTypeName
	ExpectingParamDefinition
	ExpectingParamDefType
	ExpectingAtDirective
	ExpectingQueryName
	ExpectingQueryField
	ExpectingWhereExpr
	ExpectingValue
	ExpectingString
	ExpectingNumber
	ExpectingSymbol
	ExpectingTaggedUnionVariant
	ExpectingPermissionsBlock
)

func (e Expecting) String() string {
	switch e {
	case ExpectingPyreFile:
		return "PyreFile"
	case ExpectingSchemaDefinition:
		return "SchemaDefinition"
	case ExpectingSchemaColumn:
		return "SchemaColumn"
	case ExpectingSchemaAtDirective:
		return "SchemaAtDirective"
	case ExpectingLinkDirective:
		return "LinkDirective"
	case ExpectingRecordName:
		return "RecordName"
	case ExpectingFieldName:
		return "FieldName"
	case ExpectingTypeName:
		return "TypeName"
	case ExpectingParamDefinition:
		return "ParamDefinition"
	case ExpectingParamDefType:
		return "ParamDefType"
	case ExpectingAtDirective:
		return "AtDirective"
	case ExpectingQueryName:
		return "QueryName"
	case ExpectingQueryField:
		return "QueryField"
	case ExpectingWhereExpr:
		return "WhereExpr"
	case ExpectingValue:
		return "Value"
	case ExpectingString:
		return "String"
	case ExpectingNumber:
		return "Number"
	case ExpectingSymbol:
		return "Symbol"
	case ExpectingTaggedUnionVariant:
		return "TaggedUnionVariant"
	case ExpectingPermissionsBlock:
		return "PermissionsBlock"
	default:
		return "Unknown"
	}
}

// Error is the single error type a parse can produce: the offending
// location, the Expecting tag, and the file it came from. There is no
// recovery — a parse either succeeds completely or returns one Error.
type Error struct {
	Path      string
	Location  ast.Location
	Expecting Expecting
	Detail    string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s:%s: expecting %s: %s", e.Path, e.Location, e.Expecting, e.Detail)
	}
	return fmt.Sprintf("%s:%s: expecting %s", e.Path, e.Location, e.Expecting)
}
