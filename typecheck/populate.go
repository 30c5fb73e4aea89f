package typecheck

import "pyreql/ast"

// Populate walks every schema definition across all namespaces and
// records each record, tagged union, and session declaration so
// Resolve can materialize tables and OneOf types against a complete
// name set. Built-in types are inserted by newContext.
func Populate(schemas []*ast.Schema) (*Context, ErrorList) {
	ctx := newContext()
	var errs ErrorList

	for _, schema := range schemas {
		ctx.Schemas[schema.Namespace] = schema
		if ctx.definedNames[schema.Namespace] == nil {
			ctx.definedNames[schema.Namespace] = map[string]bool{}
		}
		if ctx.OneOfByNamespace[schema.Namespace] == nil {
			ctx.OneOfByNamespace[schema.Namespace] = map[string]*OneOf{}
		}

		for _, def := range schema.Definitions {
			switch d := def.(type) {
			case *ast.Record:
				if !ctx.declareName(schema.Namespace, d.Name) {
					errs = append(errs, newErr(schema.Path, ErrDuplicateDefinition,
						"duplicate definition \""+d.Name+"\"", d.Range.Start))
					continue
				}

			case *ast.TaggedUnion:
				if !ctx.declareName(schema.Namespace, d.Name) {
					errs = append(errs, newErr(schema.Path, ErrDuplicateDefinition,
						"duplicate definition \""+d.Name+"\"", d.Range.Start))
					continue
				}
				oneOf, variantErrs := buildOneOf(schema.Path, d)
				errs = append(errs, variantErrs...)
				ctx.OneOfByNamespace[schema.Namespace][d.Name] = oneOf

			case *ast.Session:
				if ctx.Session != nil {
					errs = append(errs, newErr(schema.Path, ErrDuplicateDefinition,
						"duplicate session definition \""+d.Name+"\"", d.Range.Start))
					continue
				}
				if !ctx.declareName(schema.Namespace, d.Name) {
					errs = append(errs, newErr(schema.Path, ErrDuplicateDefinition,
						"duplicate definition \""+d.Name+"\"", d.Range.Start))
					continue
				}
				ctx.Session = d
				ctx.SessionNS = schema.Namespace
			}
		}
	}

	return ctx, errs
}

func (c *Context) declareName(ns, name string) bool {
	if c.definedNames[ns][name] {
		return false
	}
	c.definedNames[ns][name] = true
	return true
}

func buildOneOf(path string, tu *ast.TaggedUnion) (*OneOf, ErrorList) {
	var errs ErrorList
	oneOf := &OneOf{Name: tu.Name}
	seen := map[string]bool{}
	for _, v := range tu.Variants {
		if seen[v.Name] {
			errs = append(errs, newErr(path, ErrDuplicateVariant,
				"duplicate variant \""+v.Name+"\" in \""+tu.Name+"\"", v.Range.Start))
			continue
		}
		seen[v.Name] = true
		payload := make([]*ast.Column, len(v.Payload))
		for i := range v.Payload {
			payload[i] = &v.Payload[i]
		}
		oneOf.Variants = append(oneOf.Variants, VariantType{Name: v.Name, Payload: payload})
	}
	return oneOf, errs
}
