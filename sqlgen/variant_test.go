package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyreql/ast"
	"pyreql/parser"
	"pyreql/typecheck"
)

const postStatusSchemaSrc = `
tagged Status {
  Active { reason: Text }
  Archived
}

record Post {
  id: Integer @id
  title: Text
  status: Status
  updatedAt: DateTime
}
`

func compileAgainstSchema(t *testing.T, schemaSrc, querySrc string) []Prepared {
	t.Helper()
	schema, err := parser.ParseSchema("schema.pyre", "default", schemaSrc)
	require.NoError(t, err)

	ctx, errs := typecheck.Populate([]*ast.Schema{schema})
	require.Empty(t, errs)
	errs = typecheck.Resolve(ctx)
	require.Empty(t, errs)

	ql, err := parser.ParseQuery("q.pyre", "default", querySrc)
	require.NoError(t, err)
	require.Len(t, ql.Queries, 1)

	qi, qerrs := typecheck.CheckQuery(ctx, ql.Queries[0], ql.Path)
	require.Empty(t, qerrs)

	return Compile(ctx, ql.Queries[0], qi)
}

// Writing a tagged-union discriminator on insert also nulls every
// variant's payload columns explicitly, so a freshly inserted row's
// shape never depends on column declaration order (§9).
func TestCompileInsertVariantNullsEveryPayloadColumn(t *testing.T) {
	stmts := compileAgainstSchema(t, postStatusSchemaSrc, `
insert NewPost($title: Text) {
  post {
    title = $title
    status = Status.Archived
  }
}
`)
	require.Len(t, stmts, 1)
	sql := stmts[0].SQL
	assert.Contains(t, sql, `"status"`)
	assert.Contains(t, sql, `'Archived'`)
	assert.Contains(t, sql, `"status__Active__reason"`)
	assert.Contains(t, sql, "null")
}

// Switching a post's status to Archived on update nulls Active's
// payload column so a stale reason doesn't survive the switch.
func TestCompileUpdateVariantNullsOtherVariantPayload(t *testing.T) {
	stmts := compileAgainstSchema(t, postStatusSchemaSrc, `
update ArchivePost($id: Integer) {
  post {
    status = Status.Archived
    @where { id = $id }
  }
}
`)
	require.Len(t, stmts, 1)
	sql := stmts[0].SQL
	assert.Contains(t, sql, `"status" = 'Archived'`)
	assert.Contains(t, sql, `"status__Active__reason" = null`)
}
