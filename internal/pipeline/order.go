package pipeline

import (
	"cmp"
	"slices"

	"github.com/johnwards/talentflow/internal/domain"
)

// OrderStep is the gap between consecutive stage orders.
const OrderStep = 10

// unknownRank places unrecognised stage types after every known type.
const unknownRank = 1 << 16

func typeRank(t domain.StageType) int {
	if r, ok := t.Precedence(); ok {
		return r
	}
	return unknownRank
}

func compareStages(a, b domain.Stage) int {
	if c := cmp.Compare(typeRank(a.Type), typeRank(b.Type)); c != 0 {
		return c
	}
	// Only unknown types share a rank while differing; keep them grouped.
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return cmp.Compare(a.Order, b.Order)
}

// RecalculateOrders returns a copy of stages grouped by type in precedence
// order, stable by previous Order inside each group, with Order renumbered
// 10, 20, 30, ... in that traversal order.
func RecalculateOrders(stages []domain.Stage) []domain.Stage {
	out := slices.Clone(stages)
	slices.SortStableFunc(out, compareStages)
	for i := range out {
		out[i].Order = (i + 1) * OrderStep
	}
	return out
}
