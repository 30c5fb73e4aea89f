package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyreql/ast"
	"pyreql/parser"
)

func mustSchema(t *testing.T, ns, src string) *ast.Schema {
	t.Helper()
	s, err := parser.ParseSchema(ns+"/schema.pyre", ns, src)
	require.NoError(t, err)
	return s
}

func mustQuery(t *testing.T, ns, path, src string) *ast.QueryList {
	t.Helper()
	q, err := parser.ParseQuery(path, ns, src)
	require.NoError(t, err)
	return q
}

const userPostSchemaSrc = `
record User {
  id: Integer @id
  name: Text
}

record Post {
  id: Integer @id
  title: Text
  authorId @link(User.id)
}
`

func buildContext(t *testing.T, schemas ...*ast.Schema) (*Context, ErrorList) {
	t.Helper()
	ctx, errs := Populate(schemas)
	errs = append(errs, Resolve(ctx)...)
	return ctx, errs
}

func TestResolveMaterializesTablesAndSyncLayers(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	user, ok := ctx.Table("default", "user")
	require.True(t, ok)
	assert.Equal(t, 0, user.SyncLayer)

	post, ok := ctx.Table("default", "post")
	require.True(t, ok)
	assert.Equal(t, 1, post.SyncLayer)
}

func TestResolveDetectsLinkCycle(t *testing.T) {
	src := `
record Ping {
  id: Integer @id
  pongId @link(Pong.id)
}

record Pong {
  id: Integer @id
  pingId @link(Ping.id)
}
`
	s := mustSchema(t, "default", src)
	_, errs := buildContext(t, s)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Type == ErrSyncLayerCycle {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveDetectsDuplicateTableName(t *testing.T) {
	src := `
record User {
  id: Integer @id
}

record Account {
  id: Integer @id
  @tablename "user"
}
`
	s := mustSchema(t, "default", src)
	_, errs := buildContext(t, s)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrTableNameCollision, errs[0].Type)
}

func TestResolveHandlesCrossNamespaceForwardReference(t *testing.T) {
	// Order matters for a buggy map-iteration-dependent resolver: the
	// referencing schema is listed here before the schema defining its
	// link target, in both namespace-iteration orders.
	analytics := mustSchema(t, "analytics", `
record Event {
  id: Integer @id
  userId @link(default.User.id)
}
`)
	def := mustSchema(t, "default", `
record User {
  id: Integer @id
}
`)
	_, errs := buildContext(t, analytics, def)
	assert.Empty(t, errs)

	_, errs2 := buildContext(t, def, analytics)
	assert.Empty(t, errs2)
}

func TestCheckQuerySelectWithNestedLinkAndWhereSortLimit(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "feed.pyre", `
query Feed($lim: Integer) {
  user {
    id
    name
    posts {
      id
      title
      @sort(id, desc)
      @limit($lim)
    }
  }
}
`)
	qi, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	require.Empty(t, qerrs)
	assert.Equal(t, "default", qi.PrimaryDB)
	assert.Empty(t, qi.AttachedDBs)
	v, ok := qi.Variables["lim"]
	require.True(t, ok)
	assert.True(t, v.Used)
}

func TestCheckQueryRejectsUnusedArgument(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "q.pyre", `
query Q($x: Integer) {
  user {
    id
  }
}
`)
	_, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	require.Len(t, qerrs, 1)
	assert.Equal(t, ErrUnusedParam, qerrs[0].Type)
}

func TestCheckQueryDeleteForbidsNestedFieldSelection(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "del.pyre", `
delete DeletePost($id: Integer) {
  post {
    title
    @where { id = $id }
  }
}
`)
	_, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	require.Len(t, qerrs, 1)
	assert.Equal(t, ErrInvalidSet, qerrs[0].Type)
}

func TestCheckQueryUpdateRequiresRootWhere(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "upd.pyre", `
update RenameUser($name: Text) {
  user {
    name = $name
  }
}
`)
	_, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	require.NotEmpty(t, qerrs)
	found := false
	for _, e := range qerrs {
		if e.Type == ErrWhereRequired {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckQueryInsertRequiresNonNullableColumns(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "ins.pyre", `
insert CreateUser {
  user {
    id = 1
  }
}
`)
	_, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	require.NotEmpty(t, qerrs)
	found := false
	for _, e := range qerrs {
		if e.Type == ErrInvalidSet {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckQueryInsertAcceptsReciprocalNestedInsert(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "new_user.pyre", `
insert NewUser($name: Text, $title: Text) {
  user {
    name = $name
    posts {
      title = $title
    }
  }
}
`)
	_, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	assert.Empty(t, qerrs)
}

func TestCheckQueryWhereInArrayChecksElementType(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	ql := mustQuery(t, "default", "byids.pyre", `
query ByIds {
  user {
    id
    @where { id in {1, 2, 3} }
  }
}
`)
	_, qerrs := CheckQuery(ctx, ql.Queries[0], ql.Path)
	assert.Empty(t, qerrs)
}

func TestCanonicalColumnsOrdersPrimaryKeyFirst(t *testing.T) {
	s := mustSchema(t, "default", `
record Post {
  title: Text
  id: Integer @id
  body: Text
}
`)
	rec := s.Definitions[0].(*ast.Record)
	cols := CanonicalColumns(rec)
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "title", cols[1].Name)
	assert.Equal(t, "body", cols[2].Name)
}

func TestReciprocalLinksDerivedOnDemand(t *testing.T) {
	s := mustSchema(t, "default", userPostSchemaSrc)
	ctx, errs := buildContext(t, s)
	require.Empty(t, errs)

	recips := ReciprocalLinks(ctx, "default", "user")
	require.Len(t, recips, 1)
	assert.Equal(t, "posts", recips[0].Name)
	assert.Equal(t, "post", recips[0].FromTable)
}
