package zone

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxColumns is the number of unit/support/battle columns on a board.
const MaxColumns = 7

// SlotKind partitions slot keys.
type SlotKind int

const (
	KindUnit SlotKind = iota
	KindSupport
	KindBattle
	KindPartner
)

var kindNames = map[SlotKind]string{
	KindUnit:    "unit",
	KindSupport: "support",
	KindBattle:  "battle",
	KindPartner: "partner",
}

func (k SlotKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind_%d", int(k))
}

// Tracked reports whether annotations migrate with a card moving between
// slots of this kind. Partner slots hold annotations but never migrate them.
func (k SlotKind) Tracked() bool {
	return k == KindUnit || k == KindSupport || k == KindBattle
}

// ParseSlotKind parses "unit", "support", "battle" or "partner".
func ParseSlotKind(s string) (SlotKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unit":
		return KindUnit, nil
	case "support":
		return KindSupport, nil
	case "battle":
		return KindBattle, nil
	case "partner":
		return KindPartner, nil
	}
	return KindUnit, fmt.Errorf("unknown slot kind: %q", s)
}

// SlotKey names a single-occupancy board position such as "unit3" or "partner".
type SlotKey string

// PartnerKey is the only slot of kind partner.
const PartnerKey SlotKey = "partner"

// Key builds the slot key for kind and column. Column is ignored for partner.
func Key(kind SlotKind, column int) SlotKey {
	if kind == KindPartner {
		return PartnerKey
	}
	return SlotKey(kind.String() + strconv.Itoa(column))
}

// UnitKey returns "unit<column>".
func UnitKey(column int) SlotKey { return Key(KindUnit, column) }

// SupportKey returns "support<column>".
func SupportKey(column int) SlotKey { return Key(KindSupport, column) }

// BattleKey returns "battle<column>".
func BattleKey(column int) SlotKey { return Key(KindBattle, column) }

// Parse splits a key into kind and column. Partner has column 0. Only the
// canonical spelling is accepted, so "unit03" and "unit+3" are invalid.
func (k SlotKey) Parse() (SlotKind, int, error) {
	s := string(k)
	if k == PartnerKey {
		return KindPartner, 0, nil
	}
	for _, kind := range []SlotKind{KindUnit, KindSupport, KindBattle} {
		prefix := kind.String()
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		col, err := strconv.Atoi(s[len(prefix):])
		if err != nil {
			return KindUnit, 0, fmt.Errorf("invalid slot key %q: %w", s, err)
		}
		if col < 1 || col > MaxColumns {
			return KindUnit, 0, fmt.Errorf("invalid slot key %q: column out of range", s)
		}
		if Key(kind, col) != k {
			return KindUnit, 0, fmt.Errorf("invalid slot key %q: not canonical", s)
		}
		return kind, col, nil
	}
	return KindUnit, 0, fmt.Errorf("invalid slot key %q", s)
}

// Valid reports whether the key parses.
func (k SlotKey) Valid() bool {
	_, _, err := k.Parse()
	return err == nil
}

// Kind returns the key's kind. Invalid keys report KindUnit and false.
func (k SlotKey) Kind() (SlotKind, bool) {
	kind, _, err := k.Parse()
	return kind, err == nil
}

// Column returns the key's column (0 for partner or invalid keys).
func (k SlotKey) Column() int {
	_, col, err := k.Parse()
	if err != nil {
		return 0
	}
	return col
}

// Tracked reports whether the key's kind migrates annotations.
func (k SlotKey) Tracked() bool {
	kind, ok := k.Kind()
	return ok && kind.Tracked()
}

// Is reports whether k is of the given kind.
func (k SlotKey) Is(kind SlotKind) bool {
	got, ok := k.Kind()
	return ok && got == kind
}

// AllSlotKeys returns every valid key in board order.
func AllSlotKeys() []SlotKey {
	keys := make([]SlotKey, 0, 3*MaxColumns+1)
	for _, kind := range []SlotKind{KindUnit, KindSupport, KindBattle} {
		for col := 1; col <= MaxColumns; col++ {
			keys = append(keys, Key(kind, col))
		}
	}
	return append(keys, PartnerKey)
}
