package game

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game/annotation"
	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Role tags a card in a battle slot.
type Role string

const (
	RoleAttacker Role = "attacker"
	RoleBlocker  Role = "blocker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAttacker || r == RoleBlocker
}

// playerState is everything one side of the table owns.
type playerState struct {
	player    zone.Player
	board     *zone.Board
	notes     *annotation.Store
	pool      *resource.Pool
	adjuster  *resource.Adjuster
	exhausted map[zone.SlotKey]bool
	origins   map[zone.SlotKey]zone.SlotKey
	roles     map[zone.SlotKey]Role
	mulligans int

	// partnerElements caches the partner's affinities so turn automation
	// never has to reach the catalog.
	partnerElements []resource.Element

	foresee []zone.Ref
}

func newPlayerState(p zone.Player, cap int) *playerState {
	return &playerState{
		player:    p,
		board:     zone.NewBoard(),
		notes:     annotation.NewStore(),
		pool:      resource.NewPool(cap),
		adjuster:  resource.NewAdjuster(),
		exhausted: make(map[zone.SlotKey]bool),
		origins:   make(map[zone.SlotKey]zone.SlotKey),
		roles:     make(map[zone.SlotKey]Role),
	}
}

func (ps *playerState) reset() {
	ps.board.Reset()
	ps.notes.Reset()
	ps.pool.Reset()
	ps.adjuster.Clear()
	ps.exhausted = make(map[zone.SlotKey]bool)
	ps.origins = make(map[zone.SlotKey]zone.SlotKey)
	ps.roles = make(map[zone.SlotKey]Role)
	ps.mulligans = 0
	ps.partnerElements = nil
	ps.foresee = nil
}

// clearSlotState drops everything attached to key except the card itself.
func (ps *playerState) clearSlotState(key zone.SlotKey) {
	ps.notes.ClearAll(key)
	delete(ps.exhausted, key)
	delete(ps.origins, key)
	delete(ps.roles, key)
	if key == zone.PartnerKey {
		ps.partnerElements = nil
	}
}

// Engine is the authoritative table state for both players. Every exported
// method takes the engine lock, so callers never observe a partial move.
//
// Events are published synchronously while the lock is held. Listeners must
// not call back into the engine; hand the event to another goroutine instead.
type Engine struct {
	mu     sync.Mutex
	logger *zap.Logger

	opts    Options
	catalog catalog.Catalog
	parser  *resource.CostParser

	bus        *rules.EventBus
	clock      *rules.Clock
	payments   *rules.PaymentWindowManager
	choices    *rules.ChoiceManager
	watchers   *rules.WatcherRegistry
	counterOps *counters.CounterOperations

	players map[zone.Player]*playerState
	pending map[string]*pendingPlacement

	seed int64
	rng  *rand.Rand
}

// NewEngine creates an engine. cat may be nil, in which case every card uses
// the zero catalog entry.
func NewEngine(logger *zap.Logger, cat catalog.Catalog, opts Options) (*Engine, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	bus := rules.NewEventBus()
	clock, err := rules.NewClock(opts.Phases, bus)
	if err != nil {
		return nil, fmt.Errorf("failed to build turn clock: %w", err)
	}
	clock.SetOpponentBoard(opts.OpponentBoard)
	clock.Reset(opts.FirstPlayer)

	seed := opts.Seed
	if seed == 0 {
		if seed, err = newSeed(); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		logger:     logger,
		opts:       opts,
		catalog:    cat,
		parser:     resource.NewCostParser(opts.Letters, opts.Wildcard),
		bus:        bus,
		clock:      clock,
		payments:   rules.NewPaymentWindowManager(),
		choices:    rules.NewChoiceManager(),
		watchers:   rules.NewWatcherRegistry(),
		counterOps: counters.NewCounterOperations(bus),
		players:    make(map[zone.Player]*playerState, 2),
		pending:    make(map[string]*pendingPlacement),
		seed:       seed,
		rng:        rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
	for _, p := range zone.Players {
		e.players[p] = newPlayerState(p, opts.ResourceCap)
	}
	e.watchers.Attach(bus)
	e.registerAutomation()

	if logger != nil {
		logger.Debug("engine created",
			zap.Int64("seed", seed),
			zap.Int("resource_cap", opts.ResourceCap),
			zap.Bool("opponent_board", opts.OpponentBoard),
		)
	}
	return e, nil
}

// newSeed draws a seed from crypto/rand.
func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]))
	if seed == 0 {
		seed = 1
	}
	return seed, nil
}

// Seed returns the shuffle seed in use.
func (e *Engine) Seed() int64 {
	return e.seed
}

// EventBus returns the bus every engine event is published on.
func (e *Engine) EventBus() *rules.EventBus {
	return e.bus
}

// Watchers returns the registry notified of every event. Watchers reset on
// turn wrap and new game.
func (e *Engine) Watchers() *rules.WatcherRegistry {
	return e.watchers
}

// Parser returns the engine's cost parser.
func (e *Engine) Parser() *resource.CostParser {
	return e.parser
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) state(p zone.Player) (*playerState, error) {
	ps, ok := e.players[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrInvalidPlayer)
	}
	return ps, nil
}

func (e *Engine) lookup(ctx context.Context, r zone.Ref) catalog.Entry {
	entry, err := catalog.Resolve(ctx, e.catalog, r.ID, r.Face)
	if err != nil && e.logger != nil {
		e.logger.Warn("catalog lookup failed, using defaults",
			zap.String("card_id", r.ID),
			zap.Error(err),
		)
	}
	return entry
}

func (e *Engine) publish(evt rules.Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	e.bus.Publish(evt)
}

func (e *Engine) zoneEvent(t rules.EventType, p zone.Player, r zone.Ref, from, to string) rules.Event {
	evt := rules.NewEvent(t, r.ID, p.String())
	evt.Metadata["from"] = from
	evt.Metadata["to"] = to
	evt.Description = fmt.Sprintf("%s moved %s from %s to %s", p, r, from, to)
	return evt
}

// pruneOrphans drops annotations and slot state for unoccupied keys.
func (e *Engine) pruneOrphans(ps *playerState) {
	dropped := ps.notes.Prune(ps.board.Occupied)
	for key := range ps.exhausted {
		if !ps.board.Occupied(key) {
			delete(ps.exhausted, key)
		}
	}
	for key := range ps.roles {
		if !ps.board.Occupied(key) {
			delete(ps.roles, key)
		}
	}
	for key := range ps.origins {
		if !ps.board.Occupied(key) {
			delete(ps.origins, key)
		}
	}
	if len(dropped) > 0 && e.logger != nil {
		e.logger.Debug("pruned orphaned annotations",
			zap.String("player", ps.player.String()),
			zap.Int("count", len(dropped)),
		)
	}
}

// evict moves the occupant of key to the end of its owner's hand.
func (e *Engine) evict(ps *playerState, key zone.SlotKey) (zone.Ref, bool) {
	r, ok := ps.board.Take(key)
	if !ok {
		return zone.Ref{}, false
	}
	ps.board.Pile(zone.Hand).PushBottom(r)
	ps.clearSlotState(key)

	evt := rules.NewSlotEvent(rules.EventEvicted, ps.player.String(), string(key), r.ID)
	evt.Zone = zone.Hand.String()
	evt.Description = fmt.Sprintf("%s evicted from %s to hand", r, key)
	e.publish(evt)
	return r, true
}
