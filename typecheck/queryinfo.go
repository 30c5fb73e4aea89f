package typecheck

import "pyreql/ast"

// VarType is the inferred or declared type of a query variable; only
// the fields the SQL generator and argument-usage checks need.
type VarType struct {
	Kind       ast.TypeKind
	Named      string // set when Kind == ast.TypeNamed
}

// VariableUsage records one `$name` query argument's resolved type and
// whether anything referenced it. CheckQuery does not fill in
// UsedByTopLevelAlias, FromSession or SessionName: the alias set stays
// empty, and Session.field references create no entry here.
type VariableUsage struct {
	Type               VarType
	Used               bool
	UsedByTopLevelAlias map[string]bool
	FromSession        bool
	SessionName        string
}

// QueryInfo is the per-query output of typechecking: the namespace the
// root table belongs to, any other namespaces reached through
// cross-namespace links, and the resolved variable-usage map.
type QueryInfo struct {
	PrimaryDB   string
	AttachedDBs []string
	Variables   map[string]*VariableUsage
}

func newQueryInfo(primaryDB string) *QueryInfo {
	return &QueryInfo{PrimaryDB: primaryDB, Variables: map[string]*VariableUsage{}}
}

func (qi *QueryInfo) variable(name string) *VariableUsage {
	v, ok := qi.Variables[name]
	if !ok {
		v = &VariableUsage{UsedByTopLevelAlias: map[string]bool{}}
		qi.Variables[name] = v
	}
	return v
}

func (qi *QueryInfo) addAttachedDB(ns string) {
	if ns == "" || ns == qi.PrimaryDB {
		return
	}
	for _, existing := range qi.AttachedDBs {
		if existing == ns {
			return
		}
	}
	qi.AttachedDBs = append(qi.AttachedDBs, ns)
}
