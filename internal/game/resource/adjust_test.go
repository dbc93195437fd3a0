package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjuster_Apply(t *testing.T) {
	adj := NewAdjuster()
	cost := Cost{Fixed: Amounts{"Water": 2, "Fire": 1}, Wildcard: 2}

	adj.Add(&Adjustment{ID: "a", Wildcard: 1})
	adj.Add(&Adjustment{ID: "b", Fixed: Amounts{"Fire": 3}})
	adj.Add(&Adjustment{
		ID:        "only-x",
		Wildcard:  5,
		AppliesTo: func(cardID string, _ Cost) bool { return cardID == "x" },
	})

	out := adj.Apply("y", cost)
	assert.Equal(t, Amounts{"Water": 2}, out.Fixed)
	assert.Equal(t, 1, out.Wildcard)

	out = adj.Apply("x", cost)
	assert.Equal(t, 0, out.Wildcard)

	// the input is untouched
	assert.Equal(t, 1, cost.Fixed["Fire"])
	assert.Equal(t, 2, cost.Wildcard)
}

func TestAdjuster_AddReplacesAndRemove(t *testing.T) {
	adj := NewAdjuster()
	adj.Add(&Adjustment{ID: "a", Wildcard: 1})
	adj.Add(&Adjustment{ID: "a", Wildcard: 2})
	assert.Equal(t, 1, adj.Len())

	out := adj.Apply("c", Cost{Wildcard: 3})
	assert.Equal(t, 1, out.Wildcard)

	assert.True(t, adj.Remove("a"))
	assert.False(t, adj.Remove("a"))
	adj.Add(nil)
	assert.Equal(t, 0, adj.Len())
}
