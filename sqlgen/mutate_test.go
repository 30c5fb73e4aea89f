package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// update/delete never produce a caller-visible result set (neither
// emits a `returning` clause), so both compile to a single
// include=false statement regardless of whether the query names
// return fields.
func TestCompileUpdateIsNeverIncluded(t *testing.T) {
	stmts := compile(t, `
update RenameUser($id: Integer, $name: Text) {
  user {
    name = $name
    @where { id = $id }
  }
}
`)
	require.Len(t, stmts, 1)
	assert.False(t, stmts[0].Include)
	assert.Contains(t, stmts[0].SQL, `update "user" set "name" = $name`)
	assert.Contains(t, stmts[0].SQL, `where "id" = $id`)
}

func TestCompileDeleteIsNeverIncluded(t *testing.T) {
	stmts := compile(t, `
delete DeletePost($id: Integer) {
  post {
    @where { id = $id }
  }
}
`)
	require.Len(t, stmts, 1)
	assert.False(t, stmts[0].Include)
	assert.Contains(t, stmts[0].SQL, `delete from "post" where "id" = $id`)
}
