package game

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// SlotSnapshot is an occupied slot and everything attached to it.
type SlotSnapshot struct {
	Card      zone.Ref
	Exhausted bool
	Role      Role
	Origin    zone.SlotKey
	Counters  map[counters.Kind]int
	Mods      counters.Delta
	Labels    []string
	Hoard     resource.Amounts
}

// PlayerSnapshot is one side of the table.
type PlayerSnapshot struct {
	Piles     map[zone.Zone][]zone.Ref
	Slots     map[zone.SlotKey]SlotSnapshot
	Pool      resource.Amounts
	Overrides []resource.Element
	Mulligans int
	Foresee   []zone.Ref
}

// Snapshot is a deep copy of the engine state. It excludes the catalog, so
// two engines holding the same cards in the same places produce equal
// checksums whatever their catalogs say.
type Snapshot struct {
	Seed            int64
	Turn            rules.TurnState
	Players         map[zone.Player]PlayerSnapshot
	PendingPayments []string
	Timestamp       time.Time
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *Snapshot {
	s := &Snapshot{
		Seed:      e.seed,
		Turn:      e.clock.State(),
		Players:   make(map[zone.Player]PlayerSnapshot, len(e.players)),
		Timestamp: time.Now().UTC(),
	}
	for p, ps := range e.players {
		s.Players[p] = snapshotPlayer(ps)
	}
	for _, st := range e.payments.Pending() {
		s.PendingPayments = append(s.PendingPayments, st.ID())
	}
	return s
}

func snapshotPlayer(ps *playerState) PlayerSnapshot {
	out := PlayerSnapshot{
		Piles:     make(map[zone.Zone][]zone.Ref, len(zone.OrderedZones)),
		Slots:     make(map[zone.SlotKey]SlotSnapshot),
		Pool:      ps.pool.Values(),
		Overrides: ps.pool.Overrides(),
		Mulligans: ps.mulligans,
		Foresee:   append([]zone.Ref(nil), ps.foresee...),
	}
	for _, z := range zone.OrderedZones {
		out.Piles[z] = ps.board.Pile(z).Cards()
	}
	for key, card := range ps.board.SlotContents() {
		set := ps.notes.Snapshot(key)
		out.Slots[key] = SlotSnapshot{
			Card:      card,
			Exhausted: ps.exhausted[key],
			Role:      ps.roles[key],
			Origin:    ps.origins[key],
			Counters:  set.Counters.Map(),
			Mods:      set.Mods,
			Labels:    set.Labels,
			Hoard:     set.Hoard,
		}
	}
	return out
}

// CardCount is the number of cards one side holds across every zone.
func (ps PlayerSnapshot) CardCount() int {
	n := len(ps.Slots)
	for _, refs := range ps.Piles {
		n += len(refs)
	}
	return n
}

// Checksum is a digest of a snapshot's deterministic representation.
type Checksum struct {
	Hash    string
	Version int
}

// ComputeChecksum hashes the snapshot with BLAKE2b-256. Timestamps and
// pending payment IDs are left out, since they differ between otherwise
// identical tables.
func (s *Snapshot) ComputeChecksum() (Checksum, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return Checksum{}, fmt.Errorf("failed to create hash: %w", err)
	}
	if _, err := h.Write([]byte(s.canonical())); err != nil {
		return Checksum{}, fmt.Errorf("failed to compute hash: %w", err)
	}
	return Checksum{Hash: hex.EncodeToString(h.Sum(nil)), Version: 1}, nil
}

// canonical renders the snapshot independent of map iteration order.
func (s *Snapshot) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "TURN:%d|%d|%d|%s|%d\n",
		s.Turn.PhaseIndex,
		s.Turn.StepIndex,
		s.Turn.TurnNumber,
		s.Turn.ActivePlayer,
		len(s.PendingPayments),
	)

	for _, p := range zone.Players {
		ps, ok := s.Players[p]
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "PLAYER:%s|%d\n", p, ps.Mulligans)

		for _, z := range zone.OrderedZones {
			fmt.Fprintf(&buf, "PILE:%s|%s\n", z, joinRefs(ps.Piles[z]))
		}

		keys := make([]string, 0, len(ps.Slots))
		for key := range ps.Slots {
			keys = append(keys, string(key))
		}
		sort.Strings(keys)
		for _, key := range keys {
			slot := ps.Slots[zone.SlotKey(key)]
			fmt.Fprintf(&buf, "SLOT:%s|%s|%t|%s|%s|%d,%d,%d\n",
				key,
				slot.Card,
				slot.Exhausted,
				slot.Role,
				slot.Origin,
				slot.Mods.Atk, slot.Mods.Def, slot.Mods.HP,
			)
			kinds := make([]string, 0, len(slot.Counters))
			for k, n := range slot.Counters {
				kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
			}
			sort.Strings(kinds)
			fmt.Fprintf(&buf, "COUNTERS:%s\n", strings.Join(kinds, ","))
			fmt.Fprintf(&buf, "LABELS:%s\n", strings.Join(slot.Labels, ","))
			fmt.Fprintf(&buf, "HOARD:%s\n", joinAmounts(slot.Hoard))
		}

		fmt.Fprintf(&buf, "POOL:%s\n", joinAmounts(ps.Pool))
		overrides := make([]string, len(ps.Overrides))
		for i, el := range ps.Overrides {
			overrides[i] = string(el)
		}
		sort.Strings(overrides)
		fmt.Fprintf(&buf, "OVERRIDES:%s\n", strings.Join(overrides, ","))
		fmt.Fprintf(&buf, "FORESEE:%s\n", joinRefs(ps.Foresee))
	}
	return buf.String()
}

func joinRefs(refs []zone.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

func joinAmounts(a resource.Amounts) string {
	parts := make([]string, 0, len(a))
	for _, el := range a.Elements() {
		if a[el] != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", el, a[el]))
		}
	}
	return strings.Join(parts, ",")
}

// VerifyChecksum reports whether the snapshot still hashes to expected.
func (s *Snapshot) VerifyChecksum(expected Checksum) (bool, error) {
	computed, err := s.ComputeChecksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// Encode serializes the snapshot with gob.
func (s *Snapshot) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses Encode.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}
