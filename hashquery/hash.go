// Package hashquery computes a stable content fingerprint for a
// query's public interface: its operation, name, argument signature,
// and field-tree shape, independent of whitespace, comments, and the
// concrete values of its @where/@sort/@limit/@offset clauses.
package hashquery

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"sort"
	"strings"

	"pyreql/ast"
)

// HashQueryInterface returns a stable 12-character identifier for q,
// used as a wire-level protocol identifier between peers (§4.7).
func HashQueryInterface(q *ast.Query) string {
	sum := sha256.Sum256([]byte(canonicalEncoding(q)))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	return strings.ToLower(enc[:12])
}

func canonicalEncoding(q *ast.Query) string {
	var b strings.Builder
	b.WriteString(q.Operation.String())
	b.WriteByte('\n')
	b.WriteString(q.Name)
	b.WriteByte('\n')

	args := make([]ast.Argument, len(q.Args))
	copy(args, q.Args)
	sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })
	for _, a := range args {
		b.WriteString(a.Name)
		b.WriteByte(':')
		if a.Type != nil {
			b.WriteString(typeTag(*a.Type))
		}
		b.WriteByte(';')
	}
	b.WriteByte('\n')

	for _, f := range ast.CollectQueryFields(q) {
		encodeField(&b, f)
	}
	return b.String()
}

// typeTag encodes an argument's declared type so the fingerprint
// changes when a query's argument signature changes type, not just
// name or count (§4.7 derives the fingerprint from argument
// "names/types").
func typeTag(t ast.Type) string {
	switch t.Kind {
	case ast.TypeInteger:
		return "integer"
	case ast.TypeReal:
		return "real"
	case ast.TypeText:
		return "text"
	case ast.TypeBlob:
		return "blob"
	case ast.TypeDate:
		return "date"
	case ast.TypeDateTime:
		return "datetime"
	case ast.TypeJsonB:
		return "jsonb"
	case ast.TypeNamed:
		return "named:" + t.Named
	case ast.TypeVectorBlob:
		return fmt.Sprintf("vector:%s:%d", t.VectorKind, t.VectorDim)
	default:
		return "scalar"
	}
}

func encodeField(b *strings.Builder, f *ast.QueryField) {
	b.WriteByte('(')
	b.WriteString(f.TargetName)
	b.WriteByte(':')
	b.WriteString(ast.GetAliasedName(f))
	if ast.GetWhere(f) != nil {
		b.WriteString(",w")
	}
	if len(ast.GetSorts(f)) > 0 {
		b.WriteString(",s")
	}
	if ast.GetLimit(f) != nil {
		b.WriteString(",l")
	}
	if ast.GetOffset(f) != nil {
		b.WriteString(",o")
	}
	for _, nf := range ast.CollectNestedFields(f) {
		encodeField(b, nf)
	}
	b.WriteByte(')')
}
