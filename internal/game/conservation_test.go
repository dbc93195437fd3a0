package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

type column struct {
	kind zone.SlotKind
	col  int
}

// checkTable asserts that p still owns exactly want and that every occupied
// slot is a canonical key with its (kind, column) held once.
func checkTable(t *testing.T, e *Engine, p zone.Player, want map[string]int, step string) {
	t.Helper()
	assert.Equal(t, want, e.Counts(p), "%s: card counts changed", step)

	ps, err := e.state(p)
	require.NoError(t, err)
	seen := make(map[column]zone.SlotKey)
	for _, key := range ps.board.OccupiedKeys() {
		kind, col, err := key.Parse()
		if !assert.NoError(t, err, "%s: occupied key %q", step, key) {
			continue
		}
		c := column{kind, col}
		if prev, dup := seen[c]; dup {
			t.Errorf("%s: %s and %s hold the same position", step, prev, key)
		}
		seen[c] = key
	}

	total := 0
	for _, z := range zone.OrderedZones {
		total += ps.board.Pile(z).Len()
	}
	for _, key := range zone.AllSlotKeys() {
		if _, ok := ps.board.Slot(key); ok {
			total++
		}
	}
	n := 0
	for _, c := range want {
		n += c
	}
	assert.Equal(t, n, total, "%s: cards outside canonical piles and slots", step)
}

func randomKey(rng *rand.Rand) zone.SlotKey {
	keys := zone.AllSlotKeys()
	return keys[rng.IntN(len(keys))]
}

func randomZone(rng *rand.Rand) zone.Zone {
	return zone.OrderedZones[rng.IntN(len(zone.OrderedZones))]
}

// aliasKey spells a canonical column key the way a careless client might.
func aliasKey(rng *rand.Rand, key zone.SlotKey) zone.SlotKey {
	kind, col, _ := key.Parse()
	if kind == zone.KindPartner {
		return "Partner"
	}
	forms := []string{"%s0%d", "%s+%d", "%s %d"}
	return zone.SlotKey(fmt.Sprintf(forms[rng.IntN(len(forms))], kind, col))
}

func TestMoveSequencesConserveCards(t *testing.T) {
	for _, seedVal := range []uint64{1, 7, 99} {
		t.Run(fmt.Sprintf("seed_%d", seedVal), func(t *testing.T) {
			ctx := context.Background()
			rng := rand.New(rand.NewPCG(seedVal, seedVal*31))
			e := newTestEngine(t)

			want := make(map[zone.Player]map[string]int)
			for _, p := range zone.Players {
				cards := make([]string, 0, 16)
				for i := 0; i < 16; i++ {
					cards = append(cards, []string{"knight", "scout", "totem", "sage"}[i%4])
				}
				dealHand(t, e, p, cards...)
				_, err := e.MoveMany(p, zone.Hand, zone.Deck, 10)
				require.NoError(t, err)
				want[p] = e.Counts(p)
			}

			for step := 0; step < 400; step++ {
				p := zone.Players[rng.IntN(len(zone.Players))]
				var label string

				switch op := rng.IntN(10); op {
				case 0:
					src, dst := randomZone(rng), randomZone(rng)
					label = fmt.Sprintf("MoveTop %s->%s", src, dst)
					e.MoveTop(p, src, dst)
				case 1:
					src, dst := randomZone(rng), randomZone(rng)
					label = fmt.Sprintf("MoveMany %s->%s", src, dst)
					_, _ = e.MoveMany(p, src, dst, rng.IntN(4))
				case 2:
					key := randomKey(rng)
					kind, _ := key.Kind()
					src := zone.InPile(p, randomZone(rng), rng.IntN(3))
					if rng.IntN(3) == 0 {
						src = zone.InSlot(p, randomKey(rng))
					}
					label = fmt.Sprintf("MoveToSlot %s->%s", src, key)
					_, _ = e.MoveToSlot(ctx, PlaceRequest{Source: src, Player: p, Slot: key, Intent: kind})
				case 3:
					key := randomKey(rng)
					alias := aliasKey(rng, key)
					kind, _ := key.Kind()
					label = fmt.Sprintf("MoveToSlot alias %s", alias)
					_, err := e.MoveToSlot(ctx, PlaceRequest{
						Source: zone.InPile(p, zone.Hand, 0),
						Player: p,
						Slot:   alias,
						Intent: kind,
					})
					assert.ErrorIs(t, err, ErrInvalidSlot, label)
				case 4:
					key := randomKey(rng)
					label = fmt.Sprintf("DeclareBattle %s", key)
					role := RoleAttacker
					if rng.IntN(2) == 0 {
						role = RoleBlocker
					}
					_, _ = e.DeclareBattle(p, key, role)
				case 5:
					key := zone.BattleKey(1 + rng.IntN(zone.MaxColumns))
					label = fmt.Sprintf("WithdrawFromBattle %s", key)
					_, _ = e.WithdrawFromBattle(p, key)
				case 6:
					label = "Roil"
					hand, err := e.Contents(p, zone.Hand)
					require.NoError(t, err)
					var picks []int
					for i := range hand {
						if rng.IntN(2) == 0 {
							picks = append(picks, i)
						}
					}
					_, _ = e.Roil(p, picks)
				case 7:
					label = "Mulligan"
					_, _ = e.Mulligan(p)
				case 8:
					src, dst := randomZone(rng), randomZone(rng)
					label = fmt.Sprintf("Fetch %s->%s", src, dst)
					_, _ = e.Fetch(p, src, rng.IntN(4), dst, rng.IntN(2) == 0)
				case 9:
					key, dst := randomKey(rng), randomZone(rng)
					pos := Top
					if rng.IntN(2) == 0 {
						pos = Bottom
					}
					label = fmt.Sprintf("MoveSlotTo %s->%s", key, dst)
					_, _ = e.MoveSlotTo(p, key, dst, pos)
				}

				for _, q := range zone.Players {
					checkTable(t, e, q, want[q], fmt.Sprintf("step %d %s %s", step, p, label))
				}
			}
		})
	}
}
