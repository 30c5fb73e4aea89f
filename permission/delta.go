package permission

import (
	"sort"
	"strconv"
	"strings"

	"pyreql/ast"
)

// Delta is the output of grouping a batch of mutated rows by which
// sessions may observe each one: the rows themselves, deduplicated
// visibility groups, and which original row indices each group covers.
type Delta struct {
	Rows   []Row
	Groups []Group
}

// Group is one distinct set of sessions sharing an identical set of
// visible row indices, so the caller can broadcast once per group
// instead of once per session.
type Group struct {
	SessionIDs []string
	RowIndices []int
}

// ComputeDelta evaluates where against every row for every session and
// groups sessions by identical visible-row-index sets (§4.6).
func ComputeDelta(where ast.Expr, rows []Row, sessions map[string]Session) Delta {
	var sessionIDs []string
	for id := range sessions {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Strings(sessionIDs)

	visibleKey := map[string]string{} // session id -> stable key of its visible row index set
	visibleIndices := map[string][]int{}

	for _, id := range sessionIDs {
		session := sessions[id]
		var indices []int
		for i, row := range rows {
			if Evaluate(where, row, session) {
				indices = append(indices, i)
			}
		}
		visibleIndices[id] = indices
		visibleKey[id] = indexKey(indices)
	}

	byKey := map[string]*Group{}
	var order []string
	for _, id := range sessionIDs {
		k := visibleKey[id]
		g, ok := byKey[k]
		if !ok {
			g = &Group{RowIndices: visibleIndices[id]}
			byKey[k] = g
			order = append(order, k)
		}
		g.SessionIDs = append(g.SessionIDs, id)
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		groups = append(groups, *byKey[k])
	}

	return Delta{Rows: rows, Groups: groups}
}

func indexKey(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}
