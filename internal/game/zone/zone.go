package zone

import (
	"fmt"
	"strings"
)

// Player identifies one side of the table.
type Player int

const (
	Self Player = iota
	Opponent
)

// Players lists both sides in seating order.
var Players = []Player{Self, Opponent}

func (p Player) String() string {
	switch p {
	case Self:
		return "self"
	case Opponent:
		return "opponent"
	default:
		return fmt.Sprintf("player_%d", int(p))
	}
}

// Other returns the opposing side.
func (p Player) Other() Player {
	if p == Self {
		return Opponent
	}
	return Self
}

// Valid reports whether p is one of the two seats.
func (p Player) Valid() bool {
	return p == Self || p == Opponent
}

// ParsePlayer parses "self" or "opponent".
func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self":
		return Self, nil
	case "opponent":
		return Opponent, nil
	default:
		return Self, fmt.Errorf("unknown player: %q", s)
	}
}

// Zone names a card container owned by a player.
type Zone int

const (
	Deck Zone = iota
	Shield
	Grave
	Banish
	Hand
	Slots
)

var zoneNames = map[Zone]string{
	Deck:   "deck",
	Shield: "shield",
	Grave:  "grave",
	Banish: "banish",
	Hand:   "hand",
	Slots:  "slots",
}

// OrderedZones lists every zone backed by a Pile.
var OrderedZones = []Zone{Deck, Shield, Grave, Banish, Hand}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("zone_%d", int(z))
}

// Ordered reports whether the zone is an ordered sequence (everything but Slots).
func (z Zone) Ordered() bool {
	switch z {
	case Deck, Shield, Grave, Banish, Hand:
		return true
	default:
		return false
	}
}

// ParseZone parses a zone name such as "deck" or "grave".
func ParseZone(s string) (Zone, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for z, n := range zoneNames {
		if n == name {
			return z, nil
		}
	}
	return Deck, fmt.Errorf("unknown zone: %q", s)
}

// ViewMode is how the caller is presenting an ordered zone.
type ViewMode int

const (
	// ViewStacked shows only the accessible end.
	ViewStacked ViewMode = iota
	// ViewOpen shows the full contents; manual reordering is only legal here.
	ViewOpen
)

// MarshalText encodes the player by name.
func (p Player) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts "self" or "opponent".
func (p *Player) UnmarshalText(b []byte) error {
	v, err := ParsePlayer(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
