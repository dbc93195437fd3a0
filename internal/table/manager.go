package table

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// State represents the lifecycle of a table
type State int

const (
	StateWaiting State = iota
	StatePlaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StatePlaying:
		return "PLAYING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrSeatTaken   = errors.New("seat already taken")
	ErrNotSeated   = errors.New("user is not seated")
	ErrTableClosed = errors.New("table is closed")
)

// Snapshot captures table metadata for listings.
type Snapshot struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	State      string            `json:"state"`
	Seats      map[string]string `json:"seats"`
	Watchers   []string          `json:"watchers"`
	CreateTime time.Time         `json:"create_time"`
	StartTime  *time.Time        `json:"start_time,omitempty"`
}

// Table is one engine plus the users seated at it.
type Table struct {
	ID         string
	Name       string
	State      State
	Seats      map[zone.Player]string
	Watchers   map[string]bool
	CreateTime time.Time
	StartTime  *time.Time

	engine *game.Engine
	mu     sync.RWMutex
}

// Engine returns the table's engine.
func (t *Table) Engine() *game.Engine {
	return t.engine
}

// Sit seats user on p. Re-seating the same user is a no-op.
func (t *Table) Sit(p zone.Player, user string) error {
	if !p.Valid() {
		return game.ErrInvalidPlayer
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State == StateClosed {
		return ErrTableClosed
	}
	if cur, ok := t.Seats[p]; ok && cur != user {
		return fmt.Errorf("%s: %w", p, ErrSeatTaken)
	}
	t.Seats[p] = user
	delete(t.Watchers, user)
	return nil
}

// Leave frees whichever seat user holds.
func (t *Table) Leave(user string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for p, u := range t.Seats {
		if u == user {
			delete(t.Seats, p)
			return nil
		}
	}
	return ErrNotSeated
}

// SeatOf returns the seat user holds.
func (t *Table) SeatOf(user string) (zone.Player, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for p, u := range t.Seats {
		if u == user {
			return p, true
		}
	}
	return zone.Self, false
}

// AddWatcher registers a watcher for the table.
func (t *Table) AddWatcher(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Watchers[user] = true
}

// RemoveWatcher removes a watcher from the table.
func (t *Table) RemoveWatcher(user string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.Watchers[user]; exists {
		delete(t.Watchers, user)
		return true
	}
	return false
}

// SetState sets the table state
func (t *Table) SetState(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.State = state
	if state == StatePlaying && t.StartTime == nil {
		now := time.Now()
		t.StartTime = &now
	}
}

// GetState returns the current table state
func (t *Table) GetState() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// Snapshot returns a consistent copy of the table metadata.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seats := make(map[string]string, len(t.Seats))
	for p, u := range t.Seats {
		seats[p.String()] = u
	}
	watchers := make([]string, 0, len(t.Watchers))
	for w := range t.Watchers {
		watchers = append(watchers, w)
	}
	sort.Strings(watchers)

	return Snapshot{
		ID:         t.ID,
		Name:       t.Name,
		State:      t.State.String(),
		Seats:      seats,
		Watchers:   watchers,
		CreateTime: t.CreateTime,
		StartTime:  cloneTime(t.StartTime),
	}
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}

// Manager manages tables
type Manager struct {
	tables  map[string]*Table
	mu      sync.RWMutex
	logger  *zap.Logger
	catalog catalog.Catalog
	opts    game.Options
}

// NewManager creates a table manager whose engines share cat and opts.
func NewManager(logger *zap.Logger, cat catalog.Catalog, opts game.Options) *Manager {
	return &Manager{
		tables:  make(map[string]*Table),
		logger:  logger,
		catalog: cat,
		opts:    opts,
	}
}

// CreateTable creates a table with a fresh engine. An empty id generates one.
func (m *Manager) CreateTable(id, name string) (*Table, error) {
	if id == "" {
		id = uuid.New().String()
	}
	engine, err := game.NewEngine(m.logger.With(zap.String("table_id", id)), m.catalog, m.opts)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tables[id]; ok {
		return t, nil
	}
	t := &Table{
		ID:         id,
		Name:       name,
		State:      StateWaiting,
		Seats:      make(map[zone.Player]string, len(zone.Players)),
		Watchers:   make(map[string]bool),
		CreateTime: time.Now(),
		engine:     engine,
	}
	m.tables[id] = t

	m.logger.Info("table created",
		zap.String("table_id", id),
		zap.String("name", name),
		zap.Int64("seed", engine.Seed()),
	)
	return t, nil
}

// GetTable retrieves a table by ID
func (m *Manager) GetTable(id string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[id]
	return t, ok
}

// RemoveTable closes and removes a table
func (m *Manager) RemoveTable(id string) {
	m.mu.Lock()
	t, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()

	if ok {
		t.SetState(StateClosed)
		m.logger.Info("table removed", zap.String("table_id", id))
	}
}

// GetAllTables returns every table ordered by creation time.
func (m *Manager) GetAllTables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].CreateTime.Before(tables[j].CreateTime)
	})
	return tables
}

// GetActiveTableCount returns the count of tables that are not closed
func (m *Manager) GetActiveTableCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, t := range m.tables {
		if t.GetState() != StateClosed {
			count++
		}
	}
	return count
}
