package typecheck

import "pyreql/ast"

// paramFamily classifies a built-in function parameter's accepted
// input: either "any numeric type" or one concrete ast.TypeKind.
type paramFamily struct {
	isNumber bool
	concrete ast.TypeKind
}

func numberFamily() paramFamily { return paramFamily{isNumber: true} }
func concreteFamily(k ast.TypeKind) paramFamily { return paramFamily{concrete: k} }

func (f paramFamily) accepts(k ast.TypeKind) bool {
	if f.isNumber {
		return k == ast.TypeInteger || k == ast.TypeReal
	}
	return f.concrete == k
}

// builtinFunc is one entry in the fixed function table the typechecker
// consults for `@where`/`= expr` function calls, keyed by name and
// arity.
type builtinFunc struct {
	name    string
	params  []paramFamily
	returns ast.TypeKind
}

// builtinFunctions is the fixed table of §4.3's "built-in SQL
// functions keyed by name, arity, and parameter-type family".
var builtinFunctions = map[string][]builtinFunc{
	"lower":  {{name: "lower", params: []paramFamily{concreteFamily(ast.TypeText)}, returns: ast.TypeText}},
	"upper":  {{name: "upper", params: []paramFamily{concreteFamily(ast.TypeText)}, returns: ast.TypeText}},
	"length": {{name: "length", params: []paramFamily{concreteFamily(ast.TypeText)}, returns: ast.TypeInteger}},
	"abs":    {{name: "abs", params: []paramFamily{numberFamily()}, returns: ast.TypeInteger}},
	"coalesce": {
		{name: "coalesce", params: []paramFamily{concreteFamily(ast.TypeText), concreteFamily(ast.TypeText)}, returns: ast.TypeText},
		{name: "coalesce", params: []paramFamily{numberFamily(), numberFamily()}, returns: ast.TypeInteger},
	},
	"now":                {{name: "now", returns: ast.TypeDateTime}},
	"unixepoch":          {{name: "unixepoch", returns: ast.TypeInteger}},
	"json_array_length":  {{name: "json_array_length", params: []paramFamily{concreteFamily(ast.TypeJsonB)}, returns: ast.TypeInteger}},
}

// lookupBuiltinFunc resolves a call by name and argument count against
// the fixed table, returning nil if no overload matches the arity.
func lookupBuiltinFunc(name string, argc int) *builtinFunc {
	for _, overload := range builtinFunctions[name] {
		if len(overload.params) == argc {
			o := overload
			return &o
		}
	}
	return nil
}
