package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/deck"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Advance moves the clock one step forward and runs any reactions bound to
// the step it enters.
func (e *Engine) Advance() rules.TurnEntered {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Advance()
}

// EndTurn jumps to the terminal phase, or wraps into the next turn when the
// clock is already there.
func (e *Engine) EndTurn() rules.TurnEntered {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.EndTurn()
}

// JumpTo moves to a position within the current turn.
func (e *Engine) JumpTo(phase, step int) (rules.TurnEntered, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.JumpTo(phase, step)
}

// Redisplay re-emits the current position for the presentation layer.
func (e *Engine) Redisplay() rules.TurnEntered {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Redisplay()
}

// TurnState returns the clock position.
func (e *Engine) TurnState() rules.TurnState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.State()
}

// CurrentStep returns the current phase and step names.
func (e *Engine) CurrentStep() (phase, step string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Current()
}

// Phases returns the configured turn structure.
func (e *Engine) Phases() []rules.PhaseSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Phases()
}

// NewGameOptions sets up a fresh game.
type NewGameOptions struct {
	Decks map[zone.Player]deck.List
	// FirstPlayer defaults to the engine's configured first player.
	FirstPlayer *zone.Player
	// Shuffle shuffles each deck before the opening hands are drawn.
	Shuffle bool
}

// NewGame clears the table, seeds both decks, draws opening hands and enters
// the first step of the first turn. A deck that fails validation leaves the
// previous game untouched.
func (e *Engine) NewGame(ctx context.Context, opts NewGameOptions) (rules.TurnEntered, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for p, list := range opts.Decks {
		if !p.Valid() {
			return rules.TurnEntered{}, fmt.Errorf("%s: %w", p, ErrInvalidPlayer)
		}
		if err := list.Validate(); err != nil {
			return rules.TurnEntered{}, fmt.Errorf("%s: %w: %w", p, ErrInvalidDeck, err)
		}
	}
	first := e.opts.FirstPlayer
	if opts.FirstPlayer != nil {
		if !opts.FirstPlayer.Valid() {
			return rules.TurnEntered{}, fmt.Errorf("first player: %w", ErrInvalidPlayer)
		}
		first = *opts.FirstPlayer
	}

	for _, ps := range e.players {
		ps.reset()
	}
	e.payments.Reset()
	e.pending = make(map[string]*pendingPlacement)
	e.choices.Reset()

	// Watchers reset on this event, so it precedes the opening draws.
	evt := rules.NewEvent(rules.EventNewGame, "", first.String())
	evt.Metadata["seed"] = fmt.Sprint(e.seed)
	evt.Description = fmt.Sprintf("New game, %s goes first", first)
	e.publish(evt)

	for _, p := range zone.Players {
		list, ok := opts.Decks[p]
		if !ok {
			continue
		}
		if err := e.seedDeckLocked(p, list); err != nil {
			return rules.TurnEntered{}, err
		}
		if opts.Shuffle {
			if err := e.shuffleLocked(p, zone.Deck); err != nil {
				return rules.TurnEntered{}, err
			}
		}
		if _, err := e.drawLocked(p, e.opts.OpeningHand); err != nil {
			return rules.TurnEntered{}, err
		}
	}

	if e.logger != nil {
		e.logger.Info("new game",
			zap.String("first_player", first.String()),
			zap.Int("decks", len(opts.Decks)),
			zap.Bool("shuffled", opts.Shuffle),
		)
	}

	e.clock.Reset(first)
	return e.clock.Start(), nil
}
