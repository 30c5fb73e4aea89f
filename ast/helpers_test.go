package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idColumn(name string) *Column {
	return &Column{Name: name, Type: Type{Kind: TypeInteger}, Directives: []ColumnDirective{{Kind: DirectiveID}}}
}

func plainColumn(name string) *Column {
	return &Column{Name: name, Type: Type{Kind: TypeText}}
}

func TestGetTablenameOverride(t *testing.T) {
	rec := &Record{Name: "UserAccount", Fields: []Field{
		idColumn("id"),
		&TableName{Name: "accounts"},
	}}
	assert.Equal(t, "accounts", GetTablename(rec))
}

func TestGetTablenameDefaultsToDecapitalized(t *testing.T) {
	rec := &Record{Name: "UserAccount", Fields: []Field{idColumn("id")}}
	assert.Equal(t, "userAccount", GetTablename(rec))
}

func TestCollectColumnsAndLinksSkipOtherFields(t *testing.T) {
	rec := &Record{Name: "Post", Fields: []Field{
		idColumn("id"),
		plainColumn("title"),
		&Link{Name: "author", ForeignTable: "User", ForeignField: "id"},
		&Watch{},
		&Comment{Text: "// a comment"},
	}}
	assert.Len(t, CollectColumns(rec), 2)
	assert.Len(t, CollectLinks(rec), 1)
	assert.True(t, HasWatch(rec))
}

func TestGetPrimaryIDFieldName(t *testing.T) {
	rec := &Record{Name: "Post", Fields: []Field{idColumn("id"), plainColumn("title")}}
	name, ok := GetPrimaryIDFieldName(rec)
	require.True(t, ok)
	assert.Equal(t, "id", name)
}

func TestLinkedToUniqueField(t *testing.T) {
	target := &Record{Name: "User", Fields: []Field{idColumn("id"), plainColumn("email")}}

	toID := &Link{Name: "author", ForeignTable: "User", ForeignField: "id"}
	assert.True(t, LinkedToUniqueField(toID, target))

	toPlain := &Link{Name: "author", ForeignTable: "User", ForeignField: "email"}
	assert.False(t, LinkedToUniqueField(toPlain, target))
}

func TestGetAliasedNameFallsBackToTargetName(t *testing.T) {
	qf := &QueryField{TargetName: "id"}
	assert.Equal(t, "id", GetAliasedName(qf))

	qf.Alias = "userId"
	assert.Equal(t, "userId", GetAliasedName(qf))
}

func TestGetSelectAlias(t *testing.T) {
	qf := &QueryField{TargetName: "name", Alias: "userName"}
	assert.Equal(t, "u__userName", GetSelectAlias("u", qf))
}

func TestCollectQueryFieldsAndArgs(t *testing.T) {
	limit := &LimitArg{Value: &LiteralExpr{Kind: LiteralInt, Int: 10}}
	nested := &QueryField{TargetName: "comments", Args: []ArgField{limit}}
	q := &Query{
		Operation: OpSelect,
		Name:      "Feed",
		Args:      []Argument{{Name: "x"}},
		Fields: []TopField{
			&Comment{Text: "// leading"},
			&QueryField{TargetName: "post", Args: []ArgField{nested}},
		},
	}

	roots := CollectQueryFields(q)
	require.Len(t, roots, 1)
	assert.Equal(t, "post", roots[0].TargetName)

	nestedFields := CollectNestedFields(roots[0])
	require.Len(t, nestedFields, 1)
	assert.Equal(t, "comments", nestedFields[0].TargetName)

	l := GetLimit(nestedFields[0])
	require.NotNil(t, l)
	assert.Nil(t, GetWhere(nestedFields[0]))
	assert.Empty(t, GetSorts(nestedFields[0]))
	assert.Nil(t, GetOffset(nestedFields[0]))

	assert.Len(t, CollectQueryArgs(q), 1)
}

func TestDecapitalize(t *testing.T) {
	assert.Equal(t, "user", Decapitalize("User"))
	assert.Equal(t, "", Decapitalize(""))
}
