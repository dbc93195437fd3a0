// Package deck holds the validated output of a deck import.
package deck

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDeck is returned for a list with no cards.
	ErrEmptyDeck = errors.New("deck list is empty")
	// ErrBlankCard is returned when a card identifier is blank.
	ErrBlankCard = errors.New("deck list contains a blank card id")
)

// List is a multiset of card identifiers plus the declared format. The order
// of Cards is the order the deck is seeded in, top first.
type List struct {
	Format string   `json:"format" mapstructure:"format"`
	Cards  []string `json:"cards" mapstructure:"cards"`
}

// Validate checks the list can seed a deck.
func (l List) Validate() error {
	if len(l.Cards) == 0 {
		return ErrEmptyDeck
	}
	for i, c := range l.Cards {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("card %d: %w", i, ErrBlankCard)
		}
	}
	return nil
}

// Counts tallies copies per card id.
func (l List) Counts() map[string]int {
	out := make(map[string]int, len(l.Cards))
	for _, c := range l.Cards {
		out[strings.TrimSpace(c)]++
	}
	return out
}

// Expand builds a list from id -> copies, ordered by the ids slice.
func Expand(format string, ids []string, copies map[string]int) List {
	l := List{Format: format}
	for _, id := range ids {
		for i := 0; i < copies[id]; i++ {
			l.Cards = append(l.Cards, id)
		}
	}
	return l
}
