package zone

import (
	"fmt"
	"strings"
)

// Face is the printed side of a card that is showing.
type Face int

const (
	Front Face = iota
	Back
)

func (f Face) String() string {
	if f == Back {
		return "back"
	}
	return "front"
}

// ParseFace parses "front" or "back". An empty string is Front.
func ParseFace(s string) (Face, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "front":
		return Front, nil
	case "back":
		return Back, nil
	default:
		return Front, fmt.Errorf("unknown face: %q", s)
	}
}

// Ref is one physical copy of a card. Equal refs are interchangeable copies;
// a copy is identified by where it sits, never by the value itself.
type Ref struct {
	ID   string `json:"id"`
	Face Face   `json:"face"`
}

// NewRef returns a front-facing reference.
func NewRef(id string) Ref {
	return Ref{ID: id, Face: Front}
}

// Flipped returns the same card showing its other face.
func (r Ref) Flipped() Ref {
	if r.Face == Front {
		r.Face = Back
	} else {
		r.Face = Front
	}
	return r
}

// IsZero reports whether r is the empty reference.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

func (r Ref) String() string {
	if r.Face == Back {
		return r.ID + "@back"
	}
	return r.ID
}

// MarshalText encodes the face by name.
func (f Face) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts "front" or "back".
func (f *Face) UnmarshalText(b []byte) error {
	v, err := ParseFace(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
