package zone

import "fmt"

// Location addresses one card position of one player: an index into an
// ordered zone, or a slot key when Zone is Slots.
type Location struct {
	Player Player
	Zone   Zone
	Index  int
	Slot   SlotKey
}

// InPile addresses index i of an ordered zone.
func InPile(p Player, z Zone, i int) Location {
	return Location{Player: p, Zone: z, Index: i}
}

// InSlot addresses a slot.
func InSlot(p Player, key SlotKey) Location {
	return Location{Player: p, Zone: Slots, Slot: key}
}

// IsSlot reports whether the location is a slot.
func (l Location) IsSlot() bool {
	return l.Zone == Slots
}

func (l Location) String() string {
	if l.IsSlot() {
		return fmt.Sprintf("%s/%s", l.Player, l.Slot)
	}
	return fmt.Sprintf("%s/%s[%d]", l.Player, l.Zone, l.Index)
}
