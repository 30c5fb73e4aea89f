package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyreql/ast"
	"pyreql/parser"
	"pyreql/typecheck"
)

const userPostSchemaSrc = `
record User {
  id: Integer @id
  name: Text
  updatedAt: DateTime
}

record Post {
  id: Integer @id
  title: Text
  authorId @link(User.id)
  updatedAt: DateTime
}
`

// compile parses userPostSchemaSrc plus one query, typechecks both, and
// compiles the query's sole query into its Prepared statement sequence.
func compile(t *testing.T, querySrc string) []Prepared {
	t.Helper()
	schema, err := parser.ParseSchema("schema.pyre", "default", userPostSchemaSrc)
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

// Scenario 1 (spec.md §8): a nested select over a reciprocal one-to-many
// link compiles to the JSON-CTE strategy, producing a selected__ CTE per
// level, a json__ aggregation CTE for the linked level, and a final
// json_object projection.
func TestCompileNestedSelectEmitsJSONCTEs(t *testing.T) {
	stmts := compile(t, `
query Feed {
  user {
    id
    name
    posts {
      id
      title
    }
  }
}
`)
	require.Len(t, stmts, 1)
	sql := stmts[0].SQL
	assert.True(t, stmts[0].Include)
	assert.Contains(t, sql, `"selected__user"`)
	assert.Contains(t, sql, `"selected__posts"`)
	assert.Contains(t, sql, `"json__posts"`)
	assert.Contains(t, sql, `"json__user"`)
	// the root's own json__user CTE merges in the posts aggregation under
	// the "posts" key, keyed to the reciprocal join
	assert.Contains(t, sql, "'posts', coalesce(")
	// the root is an array of every matching user row, wrapped under its
	// own field alias, not a bare per-row projection
	assert.Contains(t, sql, `json_object('user', coalesce((select "user" from "json__user"), jsonb('[]')))`)
	// the reciprocal join key is Post's own FK column, not User's id
	assert.Contains(t, sql, `"authorId" in (select "id" from "selected__user")`)
}

// Scenario 2 (spec.md §8): an insert with a nested insert on a reciprocal
// link uses the temp-table choreography: plain insert, temp table
// capturing the new row's id, nested insert sourcing its FK from the temp
// table, a final scoped select, then a drop of the temp table.
func TestCompileNestedInsertUsesTempTableChoreography(t *testing.T) {
	stmts := compile(t, `
insert NewUser($name: Text, $title: Text) {
  user {
    name = $name
    posts {
      title = $title
    }
  }
}
`)
	require.Len(t, stmts, 5)

	assert.False(t, stmts[0].Include)
	assert.Contains(t, stmts[0].SQL, `insert into "user"`)
	assert.Contains(t, stmts[0].SQL, "name")
	assert.Contains(t, stmts[0].SQL, "$name")
	assert.Contains(t, stmts[0].SQL, "unixepoch()")

	assert.False(t, stmts[1].Include)
	assert.Contains(t, stmts[1].SQL, "create temp table")
	assert.True(t, strings.HasPrefix(stmts[1].SQL, "create temp table inserted_user"))
	assert.Contains(t, stmts[1].SQL, "select last_insert_rowid() as id")

	assert.False(t, stmts[2].Include)
	assert.Contains(t, stmts[2].SQL, `insert into "post"`)
	assert.Contains(t, stmts[2].SQL, "authorId")
	assert.Contains(t, stmts[2].SQL, "$title")
	assert.Contains(t, stmts[2].SQL, ".id")

	assert.True(t, stmts[3].Include)
	assert.Contains(t, stmts[3].SQL, "select")

	assert.False(t, stmts[4].Include)
	assert.Contains(t, stmts[4].SQL, "drop table")
}

// A root select with no nested links compiles to a single flat select,
// never the JSON-CTE strategy.
func TestCompileFlatSelectForLeafQuery(t *testing.T) {
	stmts := compile(t, `
query Users {
  user {
    id
    name
  }
}
`)
	require.Len(t, stmts, 1)
	assert.True(t, stmts[0].Include)
	assert.NotContains(t, stmts[0].SQL, "with ")
	assert.Contains(t, stmts[0].SQL, `from "user" as user`)
}

// A forward link selection (post.authorId's target User row) also takes
// the JSON-CTE path and is keyed the opposite way around: the parent
// supplies its own FK value, the child is identified by the link's
// foreign field.
func TestCompileForwardLinkSelectEmitsJSONCTEs(t *testing.T) {
	stmts := compile(t, `
query PostsWithAuthor {
  post {
    id
    title
    authorId {
      id
      name
    }
  }
}
`)
	require.Len(t, stmts, 1)
	sql := stmts[0].SQL
	assert.Contains(t, sql, `"selected__post"`)
	assert.Contains(t, sql, `"selected__authorId"`)
	assert.Contains(t, sql, `"json__authorId"`)
	// forward direction: child identified by its own id, constrained by
	// the parent's own FK column
	assert.Contains(t, sql, `"id" in (select "authorId" from "selected__post")`)
	// forward links point at a unique field, so the aggregation collapses
	// to a single json object rather than an array
	assert.Contains(t, sql, "jsonb_object()")
	assert.Contains(t, sql, `json_object('post', coalesce((select "post" from "json__post"), jsonb('[]')))`)
}
