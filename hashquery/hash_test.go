package hashquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyreql/ast"
	"pyreql/parser"
)

func mustQuery(t *testing.T, src string) *ast.QueryList {
	t.Helper()
	ql, err := parser.ParseQuery("q.pyre", "default", src)
	require.NoError(t, err)
	require.Len(t, ql.Queries, 1)
	return ql
}

// HashQueryInterface is stable across whitespace and comment differences:
// two syntactically distinct but semantically identical queries hash to
// the same identifier (§4.7).
func TestHashQueryInterfaceStableAcrossWhitespaceAndComments(t *testing.T) {
	a := mustQuery(t, `
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
	b := mustQuery(t, `
// a differently formatted but equivalent query
query Feed($lim: Integer) {
	user {
		id   name



		posts { id title @sort(id, desc) @limit($lim) }
	}
}
`)
	assert.Equal(t, HashQueryInterface(a.Queries[0]), HashQueryInterface(b.Queries[0]))
}

func TestHashQueryInterfaceLength(t *testing.T) {
	a := mustQuery(t, `
query Users {
  user {
    id
  }
}
`)
	h := HashQueryInterface(a.Queries[0])
	assert.Len(t, h, 12)
}

// Changing the argument signature changes the hash.
func TestHashQueryInterfaceDiffersOnArgumentChange(t *testing.T) {
	a := mustQuery(t, `
query Q($x: Integer) {
  user {
    id
    @where { id = $x }
  }
}
`)
	b := mustQuery(t, `
query Q($x: Text) {
  user {
    id
    @where { id = $x }
  }
}
`)
	assert.NotEqual(t, HashQueryInterface(a.Queries[0]), HashQueryInterface(b.Queries[0]))
}

// Changing the field-tree shape (an added nested field) changes the hash.
func TestHashQueryInterfaceDiffersOnFieldShapeChange(t *testing.T) {
	a := mustQuery(t, `
query Q {
  user {
    id
  }
}
`)
	b := mustQuery(t, `
query Q {
  user {
    id
    name
  }
}
`)
	assert.NotEqual(t, HashQueryInterface(a.Queries[0]), HashQueryInterface(b.Queries[0]))
}

// Changing only the concrete value inside a @where clause (not its
// presence) does not change the hash: the encoding only records whether a
// where/sort/limit/offset clause exists, not its contents.
func TestHashQueryInterfaceStableAcrossWhereValueChange(t *testing.T) {
	a := mustQuery(t, `
query Q {
  user {
    id
    @where { id = 1 }
  }
}
`)
	b := mustQuery(t, `
query Q {
  user {
    id
    @where { id = 2 }
  }
}
`)
	assert.Equal(t, HashQueryInterface(a.Queries[0]), HashQueryInterface(b.Queries[0]))
}
