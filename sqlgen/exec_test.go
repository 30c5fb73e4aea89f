package sqlgen

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// openUserPostDB creates an in-memory SQLite database matching
// userPostSchemaSrc, the schema the compiled statements in this file's
// tests are generated against.
func openUserPostDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`create table user (id integer primary key, name text, updatedAt integer)`)
	require.NoError(t, err)
	_, err = db.Exec(`create table post (id integer primary key, title text, authorId integer, updatedAt integer)`)
	require.NoError(t, err)
	return db
}

// bindArgs picks out, from named, only the $-prefixed parameters that
// actually appear in sqlText, since a single compiled statement in a
// sequence rarely references every query argument.
func bindArgs(sqlText string, named map[string]any) []any {
	var args []any
	for name, val := range named {
		if strings.Contains(sqlText, "$"+name) {
			args = append(args, sql.Named(name, val))
		}
	}
	return args
}

// execPrepared runs a compiled statement sequence against db in order,
// as the consumer described in §4.4 would, and returns the JSON text
// produced by the sole include=true statement it expects.
func execPrepared(t *testing.T, db *sql.DB, stmts []Prepared, named map[string]any) string {
	t.Helper()
	var result string
	found := false
	for _, stmt := range stmts {
		args := bindArgs(stmt.SQL, named)
		if stmt.Include {
			require.NoError(t, db.QueryRow(stmt.SQL, args...).Scan(&result))
			found = true
			continue
		}
		_, err := db.Exec(stmt.SQL, args...)
		require.NoError(t, err, "statement: %s", stmt.SQL)
	}
	require.True(t, found, "expected exactly one include=true statement")
	return result
}

// Scenario 1 (spec.md §8), executed: the nested select over a
// reciprocal one-to-many link returns one JSON object keyed by the
// root field, whose value is an array of every matching user, each
// carrying its own posts nested inside.
func TestExecuteNestedSelectProducesExpectedJSON(t *testing.T) {
	db := openUserPostDB(t)

	_, err := db.Exec(`insert into user (id, name) values (1, 'Alice'), (2, 'Bob')`)
	require.NoError(t, err)
	_, err = db.Exec(`insert into post (id, title, authorId) values (1, 'Hello', 1), (2, 'World', 1)`)
	require.NoError(t, err)

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
	out := execPrepared(t, db, stmts, nil)

	var parsed struct {
		User []struct {
			ID    int64  `json:"id"`
			Name  string `json:"name"`
			Posts []struct {
				ID    int64  `json:"id"`
				Title string `json:"title"`
			} `json:"posts"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))

	require.Len(t, parsed.User, 2)

	byName := map[string]int{}
	for i, u := range parsed.User {
		byName[u.Name] = i
	}

	alice := parsed.User[byName["Alice"]]
	require.Len(t, alice.Posts, 2)
	titles := map[string]bool{alice.Posts[0].Title: true, alice.Posts[1].Title: true}
	require.True(t, titles["Hello"] && titles["World"])

	bob := parsed.User[byName["Bob"]]
	require.Empty(t, bob.Posts)
}

// A select root with no matching rows still returns a well-formed
// empty array rather than a null or missing key.
func TestExecuteNestedSelectEmptyDatabaseProducesEmptyArray(t *testing.T) {
	db := openUserPostDB(t)

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
	out := execPrepared(t, db, stmts, nil)

	var parsed struct {
		User []any `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.NotNil(t, parsed.User)
	require.Empty(t, parsed.User)
}

// Scenario 2 (spec.md §8), executed: inserting a user with a nested
// post uses the temp-table choreography, and the final scoped select
// returns just the newly inserted user with its new post nested.
func TestExecuteNestedInsertProducesExpectedJSON(t *testing.T) {
	db := openUserPostDB(t)

	// A pre-existing, unrelated row must not leak into the scoped
	// result of the insert below.
	_, err := db.Exec(`insert into user (id, name) values (99, 'Existing')`)
	require.NoError(t, err)

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
	out := execPrepared(t, db, stmts, map[string]any{"name": "Carol", "title": "First post"})

	var parsed struct {
		User []struct {
			Name  string `json:"name"`
			Posts []struct {
				Title string `json:"title"`
			} `json:"posts"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))

	require.Len(t, parsed.User, 1)
	require.Equal(t, "Carol", parsed.User[0].Name)
	require.Len(t, parsed.User[0].Posts, 1)
	require.Equal(t, "First post", parsed.User[0].Posts[0].Title)

	var total int
	require.NoError(t, db.QueryRow(`select count(*) from user`).Scan(&total))
	require.Equal(t, 2, total)
}
