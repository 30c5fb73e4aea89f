package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyreql/parser"
)

// Schema/Queries are derived solely from the AST, so formatting is a
// fixed point: reformatting already-formatted source reproduces it
// byte-for-byte, which stands in for parse(format(parse(s))) == parse(s)
// since there's no parse-tree equality check available (§8).
func TestSchemaFormatIsAFixedPoint(t *testing.T) {
	src := `
record User {
  id: Integer @id
  name: Text
  bio: Text? @default("")
  createdAt: DateTime
}

record Post {
  id: Integer @id
  title: Text
  authorId @link(User.id)
  @tablename "posts"
}
`
	s, err := parser.ParseSchema("schema.pyre", "default", src)
	require.NoError(t, err)

	once := Schema(s)

	s2, err := parser.ParseSchema("schema.pyre", "default", once)
	require.NoError(t, err)

	twice := Schema(s2)
	assert.Equal(t, once, twice)
}

func TestQueriesFormatIsAFixedPoint(t *testing.T) {
	schemaSrc := `
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
	_, err := parser.ParseSchema("schema.pyre", "default", schemaSrc)
	require.NoError(t, err)

	querySrc := `
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
`
	ql, err := parser.ParseQuery("q.pyre", "default", querySrc)
	require.NoError(t, err)

	once := Queries(ql)

	ql2, err := parser.ParseQuery("q.pyre", "default", once)
	require.NoError(t, err)

	twice := Queries(ql2)
	assert.Equal(t, once, twice)
}

// Formatting preserves the record's declared content: names, types,
// nullability, directives and link targets all survive the round trip.
func TestSchemaFormatPreservesDeclaredContent(t *testing.T) {
	src := `
record User {
  id: Integer @id
  bio: Text?
}
`
	s, err := parser.ParseSchema("schema.pyre", "default", src)
	require.NoError(t, err)
	out := Schema(s)

	assert.Contains(t, out, "record User {")
	assert.Contains(t, out, "id: Integer @id")
	assert.Contains(t, out, "bio: Text?")
}

// A @where clause referencing Session.<field> round-trips through
// exprSource unchanged in meaning.
func TestQueriesFormatPreservesWhereClause(t *testing.T) {
	schemaSrc := `
record Post {
  id: Integer @id
  authorId: Integer
}
`
	_, err := parser.ParseSchema("schema.pyre", "default", schemaSrc)
	require.NoError(t, err)

	querySrc := `
query MyPosts {
  post {
    id
    @where { authorId = Session.userId }
  }
}
`
	ql, err := parser.ParseQuery("q.pyre", "default", querySrc)
	require.NoError(t, err)
	out := Queries(ql)
	assert.Contains(t, out, "@where { authorId = Session.userId }")
}
