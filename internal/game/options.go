package game

import (
	"fmt"

	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Reactions binds each automated reaction to the step (or stepless phase)
// name that triggers it. An empty name disables the reaction.
type Reactions struct {
	Ready   string `mapstructure:"ready"`
	Draw    string `mapstructure:"draw"`
	Produce string `mapstructure:"produce"`
	Poison  string `mapstructure:"poison"`
}

// DefaultReactions matches rules.DefaultPhases.
var DefaultReactions = Reactions{
	Ready:   "Ready",
	Draw:    "Draw",
	Produce: "Produce",
	Poison:  "End",
}

// Options configures an Engine.
type Options struct {
	ResourceCap int
	OpeningHand int

	// Letters maps cost letters to element names; nil uses the defaults.
	Letters  map[rune]string
	Wildcard rune

	AttackDecay counters.Kind
	Stun        counters.Kind
	Poison      counters.Kind

	Phases        []rules.PhaseSpec
	Reactions     Reactions
	OpponentBoard bool
	FirstPlayer   zone.Player

	// Seed fixes the shuffle order; zero draws a seed from crypto/rand.
	Seed int64
}

// DefaultOptions returns the standard table setup.
func DefaultOptions() Options {
	return Options{
		ResourceCap: resource.DefaultCap,
		OpeningHand: 5,
		Wildcard:    resource.DefaultWildcard,
		AttackDecay: counters.Daze,
		Stun:        counters.Stun,
		Poison:      counters.Poison,
		Reactions:   DefaultReactions,
		FirstPlayer: zone.Self,
	}
}

func (o Options) withDefaults() (Options, error) {
	def := DefaultOptions()
	if o.ResourceCap <= 0 {
		o.ResourceCap = def.ResourceCap
	}
	if o.OpeningHand < 0 {
		return o, fmt.Errorf("opening hand must not be negative: %d", o.OpeningHand)
	}
	if o.Wildcard == 0 {
		o.Wildcard = def.Wildcard
	}
	if o.AttackDecay == "" {
		o.AttackDecay = def.AttackDecay
	}
	if o.Stun == "" {
		o.Stun = def.Stun
	}
	if o.Poison == "" {
		o.Poison = def.Poison
	}
	if o.Reactions == (Reactions{}) {
		o.Reactions = def.Reactions
	}
	if !o.FirstPlayer.Valid() {
		return o, fmt.Errorf("first player: %w", ErrInvalidPlayer)
	}
	return o, nil
}
