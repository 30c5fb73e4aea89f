package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyreql/ast"
	"pyreql/parser"
	"pyreql/typecheck"
)

func mustContext(t *testing.T, src string) *typecheck.Context {
	t.Helper()
	s, err := parser.ParseSchema("schema.pyre", "default", src)
	require.NoError(t, err)
	ctx, errs := typecheck.Populate([]*ast.Schema{s})
	require.Empty(t, errs)
	require.Empty(t, typecheck.Resolve(ctx))
	return ctx
}

const baseSchema = `
record User {
  id: Integer @id
  name: Text
}
`

// Scenario 6 (spec.md §8): diffing a schema against itself is empty, the
// idempotence property the migration planner relies on.
func TestComputeIsEmptyForIdenticalSchemas(t *testing.T) {
	a := mustContext(t, baseSchema)
	b := mustContext(t, baseSchema)
	d := Compute(a, b)
	assert.True(t, d.IsEmpty())
	assert.Empty(t, ToSQL(d, a))
}

func TestComputeDetectsAddedTable(t *testing.T) {
	declared := mustContext(t, baseSchema+`
record Post {
  id: Integer @id
  title: Text
}
`)
	introspected := mustContext(t, baseSchema)
	d := Compute(declared, introspected)
	require.Len(t, d.Added, 1)
	assert.Equal(t, "Post", d.Added[0].Record.Name)
	assert.Empty(t, d.Removed)
	assert.Empty(t, d.Modified)
}

func TestComputeDetectsRemovedTable(t *testing.T) {
	declared := mustContext(t, baseSchema)
	introspected := mustContext(t, baseSchema+`
record Post {
  id: Integer @id
  title: Text
}
`)
	d := Compute(declared, introspected)
	require.Len(t, d.Removed, 1)
	assert.Equal(t, "post", d.Removed[0])
}

func TestComputeDetectsAddedAndRemovedColumn(t *testing.T) {
	declared := mustContext(t, `
record User {
  id: Integer @id
  name: Text
  bio: Text
}
`)
	introspected := mustContext(t, `
record User {
  id: Integer @id
  name: Text
  nickname: Text
}
`)
	d := Compute(declared, introspected)
	require.Len(t, d.Modified, 1)
	rc := d.Modified[0]
	assert.Equal(t, "user", rc.TableName)

	var added, removed bool
	for _, c := range rc.Changes {
		if c.Kind == ColumnAdded && c.Name == "bio" {
			added = true
		}
		if c.Kind == ColumnRemoved && c.Name == "nickname" {
			removed = true
		}
	}
	assert.True(t, added)
	assert.True(t, removed)
}

// ToSQL drops tables before creating them, so a rename (modeled here as
// one table removed and a differently-named one added) never tries to
// create into a name still occupied by a foreign-key-referenced table.
func TestToSQLOrdersDropsBeforeCreates(t *testing.T) {
	declared := mustContext(t, `
record Account {
  id: Integer @id
}
`)
	introspected := mustContext(t, baseSchema)
	d := Compute(declared, introspected)
	stmts := ToSQL(d, declared)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0].SQL, "drop table if exists")
	assert.Contains(t, stmts[1].SQL, "create table")
}

// A tagged-union-typed column materializes as a discriminator text
// column plus one nullable column per payload field, across every
// variant that carries one (§9 "Tagged unions as columns"); a
// payload-less variant (Archived) contributes no extra column.
func TestCreateTableExpandsTaggedUnionIntoDiscriminatorAndPayloadColumns(t *testing.T) {
	declared := mustContext(t, `
tagged Status {
  Active { reason: Text }
  Archived
}

record Post {
  id: Integer @id
  status: Status
}
`)
	introspected := mustContext(t, `tagged Status { Active { reason: Text } Archived }`)
	d := Compute(declared, introspected)
	require.Len(t, d.Added, 1)

	stmts := ToSQL(d, declared)
	require.Len(t, stmts, 1)
	sql := stmts[0].SQL
	assert.Contains(t, sql, `"status" TEXT`)
	assert.Contains(t, sql, `"status__Active__reason" TEXT`)
	assert.NotContains(t, sql, "Archived__")
}

// The same expansion applies when a tagged-union column is added to an
// existing table: each payload column is its own `alter table add
// column` statement, since SQLite only allows one column per alter.
func TestAlterTableAddColumnExpandsTaggedUnionColumn(t *testing.T) {
	declared := mustContext(t, `
tagged Status {
  Active { reason: Text }
  Archived
}

record Post {
  id: Integer @id
  status: Status
}
`)
	introspected := mustContext(t, `
tagged Status {
  Active { reason: Text }
  Archived
}

record Post {
  id: Integer @id
}
`)
	d := Compute(declared, introspected)
	require.Len(t, d.Modified, 1)

	stmts := ToSQL(d, declared)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0].SQL, `alter table "post" add column "status" TEXT`)
	assert.Contains(t, stmts[1].SQL, `alter table "post" add column "status__Active__reason" TEXT`)
}

func TestToSQLFlagsColumnTypeChangeForManualReview(t *testing.T) {
	declared := mustContext(t, `
record User {
  id: Integer @id
  name: Integer
}
`)
	introspected := mustContext(t, baseSchema)
	d := Compute(declared, introspected)
	stmts := ToSQL(d, declared)
	require.Len(t, stmts, 1)
	assert.True(t, stmts[0].ManualReview)
}
