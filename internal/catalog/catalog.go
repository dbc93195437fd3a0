// Package catalog provides read-only lookup of static card attributes.
package catalog

import (
	"context"
	"strings"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Card types the engine cares about when deciding placement intent.
const (
	TypeUnit    = "unit"
	TypeSupport = "support"
	TypePartner = "partner"
)

// Entry is the static data of one card face.
type Entry struct {
	ID       string    `json:"id"`
	Face     zone.Face `json:"face"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Cost     string    `json:"cost"`
	Atk      int       `json:"atk"`
	Def      int       `json:"def"`
	HP       int       `json:"hp"`
	Elements []string  `json:"elements"`
}

// Fallback is the zero-stat, untyped entry used for unknown cards.
func Fallback(id string, face zone.Face) Entry {
	return Entry{ID: id, Face: face, Name: id}
}

// Is reports whether the entry's type matches t, ignoring case.
func (e Entry) Is(t string) bool {
	return strings.EqualFold(e.Type, t)
}

// Catalog looks up card entries. found is false for unknown cards; err is
// reserved for backend failures.
type Catalog interface {
	Lookup(ctx context.Context, id string, face zone.Face) (entry Entry, found bool, err error)
}

// Resolve returns the entry for id, falling back to the zero entry when the
// card is unknown or the backend fails.
func Resolve(ctx context.Context, c Catalog, id string, face zone.Face) (Entry, error) {
	if c == nil {
		return Fallback(id, face), nil
	}
	e, ok, err := c.Lookup(ctx, id, face)
	if err != nil {
		return Fallback(id, face), err
	}
	if !ok {
		return Fallback(id, face), nil
	}
	return e, nil
}

// SplitElements splits a "Fire|Water" or "Fire;Water" list.
func SplitElements(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ';' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
