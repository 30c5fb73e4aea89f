package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pyreql/ast"
)

// sessionEq builds the ast.Expr for `column = Session.field`.
func sessionEq(column, sessionField string) ast.Expr {
	return &ast.Comparison{
		Column:   ast.ColumnRef{Name: column},
		Operator: ast.OpEq,
		Value:    &ast.VarExpr{IsSession: true, SessionField: sessionField},
	}
}

// Scenario 5 (spec.md §8): a row-visibility rule of `authorId = Session.userId`
// admits a session matching the row's author and excludes every other one.
func TestEvaluateSessionOwnershipRule(t *testing.T) {
	where := sessionEq("authorId", "userId")
	row := Row{"authorId": int64(7)}

	assert.True(t, Evaluate(where, row, Session{"userId": int64(7)}))
	assert.False(t, Evaluate(where, row, Session{"userId": int64(8)}))
}

// equal() treats numerically-equal values as equal regardless of Go's
// int/int64/float64 distinction, mirroring SQLite's type affinity rules.
func TestEvaluateSessionOwnershipRuleAcrossNumericTypes(t *testing.T) {
	where := sessionEq("authorId", "userId")
	row := Row{"authorId": 7}

	assert.True(t, Evaluate(where, row, Session{"userId": int64(7)}))
	assert.True(t, Evaluate(where, row, Session{"userId": 7.0}))
}

func TestEvaluateAndOrComposition(t *testing.T) {
	and := &ast.AndExpr{
		Left:  sessionEq("authorId", "userId"),
		Right: &ast.Comparison{Column: ast.ColumnRef{Name: "published"}, Operator: ast.OpEq, Value: &ast.LiteralExpr{Kind: ast.LiteralBool, Bool: true}},
	}
	row := Row{"authorId": int64(7), "published": true}
	assert.True(t, Evaluate(and, row, Session{"userId": int64(7)}))
	assert.False(t, Evaluate(and, Row{"authorId": int64(7), "published": false}, Session{"userId": int64(7)}))

	or := &ast.OrExpr{
		Left:  sessionEq("authorId", "userId"),
		Right: &ast.Comparison{Column: ast.ColumnRef{Name: "public"}, Operator: ast.OpEq, Value: &ast.LiteralExpr{Kind: ast.LiteralBool, Bool: true}},
	}
	assert.True(t, Evaluate(or, Row{"authorId": int64(9), "public": true}, Session{"userId": int64(7)}))
	assert.False(t, Evaluate(or, Row{"authorId": int64(9), "public": false}, Session{"userId": int64(7)}))
}

func TestEvaluateInAndNotIn(t *testing.T) {
	where := &ast.Comparison{
		Column:   ast.ColumnRef{Name: "id"},
		Operator: ast.OpIn,
		Value: &ast.LiteralExpr{Kind: ast.LiteralArray, Array: []ast.Expr{
			&ast.LiteralExpr{Kind: ast.LiteralInt, Int: 1},
			&ast.LiteralExpr{Kind: ast.LiteralInt, Int: 2},
		}},
	}
	assert.True(t, Evaluate(where, Row{"id": int64(2)}, nil))
	assert.False(t, Evaluate(where, Row{"id": int64(3)}, nil))

	notIn := &ast.Comparison{Column: where.Column, Operator: ast.OpNotIn, Value: where.Value}
	assert.False(t, Evaluate(notIn, Row{"id": int64(2)}, nil))
	assert.True(t, Evaluate(notIn, Row{"id": int64(3)}, nil))
}

// != against a null operand is false, not true: null participates in no
// comparison except equality, where it is true only when both sides are
// null (§8).
func TestEvaluateNeqAgainstNull(t *testing.T) {
	neq := &ast.Comparison{Column: ast.ColumnRef{Name: "deletedAt"}, Operator: ast.OpNeq, Value: &ast.LiteralExpr{Kind: ast.LiteralNull}}
	assert.False(t, Evaluate(neq, Row{"deletedAt": nil}, nil))
	assert.False(t, Evaluate(neq, Row{"deletedAt": int64(5)}, nil))

	eq := &ast.Comparison{Column: neq.Column, Operator: ast.OpEq, Value: neq.Value}
	assert.True(t, Evaluate(eq, Row{"deletedAt": nil}, nil))
	assert.False(t, Evaluate(eq, Row{"deletedAt": int64(5)}, nil))
}

func TestEvaluateOrderedComparisons(t *testing.T) {
	lt := &ast.Comparison{Column: ast.ColumnRef{Name: "age"}, Operator: ast.OpLt, Value: &ast.LiteralExpr{Kind: ast.LiteralInt, Int: 18}}
	assert.True(t, Evaluate(lt, Row{"age": int64(10)}, nil))
	assert.False(t, Evaluate(lt, Row{"age": int64(20)}, nil))

	gte := &ast.Comparison{Column: ast.ColumnRef{Name: "age"}, Operator: ast.OpGte, Value: &ast.LiteralExpr{Kind: ast.LiteralInt, Int: 18}}
	assert.True(t, Evaluate(gte, Row{"age": int64(18)}, nil))
}

func TestEvaluateLikeAndNotLike(t *testing.T) {
	like := &ast.Comparison{Column: ast.ColumnRef{Name: "name"}, Operator: ast.OpLike, Value: &ast.LiteralExpr{Kind: ast.LiteralString, String: "jo%"}}
	assert.True(t, Evaluate(like, Row{"name": "john"}, nil))
	assert.False(t, Evaluate(like, Row{"name": "mary"}, nil))

	notLike := &ast.Comparison{Column: like.Column, Operator: ast.OpNotLike, Value: like.Value}
	assert.False(t, Evaluate(notLike, Row{"name": "john"}, nil))
	assert.True(t, Evaluate(notLike, Row{"name": "mary"}, nil))
}

// Evaluate is total: it never panics on a missing row/session key, an
// unrecognized expression shape, or a nil session, and always produces a
// definite boolean.
func TestEvaluateIsTotalOnMissingAndNilInputs(t *testing.T) {
	assert.NotPanics(t, func() {
		where := sessionEq("authorId", "userId")
		assert.False(t, Evaluate(where, Row{}, Session{}))
		assert.False(t, Evaluate(where, nil, nil))

		var unknown ast.Expr = &ast.VarExpr{Name: "unbound"}
		assert.False(t, Evaluate(unknown, Row{"x": 1}, nil))
	})
}
