// Package pgcatalog serves catalog entries from PostgreSQL.
package pgcatalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Schema creates the cards table used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS cards (
	card_id   TEXT NOT NULL,
	face      TEXT NOT NULL DEFAULT 'front',
	name      TEXT NOT NULL DEFAULT '',
	card_type TEXT NOT NULL DEFAULT '',
	cost      TEXT NOT NULL DEFAULT '',
	atk       INTEGER NOT NULL DEFAULT 0,
	def       INTEGER NOT NULL DEFAULT 0,
	hp        INTEGER NOT NULL DEFAULT 0,
	elements  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (card_id, face)
)`

const selectEntry = `
SELECT name, card_type, cost, atk, def, hp, elements
FROM cards
WHERE card_id = $1 AND face = $2`

const upsertEntry = `
INSERT INTO cards (card_id, face, name, card_type, cost, atk, def, hp, elements)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (card_id, face) DO UPDATE SET
	name = EXCLUDED.name,
	card_type = EXCLUDED.card_type,
	cost = EXCLUDED.cost,
	atk = EXCLUDED.atk,
	def = EXCLUDED.def,
	hp = EXCLUDED.hp,
	elements = EXCLUDED.elements`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a Catalog backed by the cards table.
type Store struct {
	db     DB
	logger *zap.Logger
}

// New wraps an existing connection.
func New(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(pool, logger), pool, nil
}

// Migrate creates the cards table if it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create cards table: %w", err)
	}
	return nil
}

// Lookup implements catalog.Catalog.
func (s *Store) Lookup(ctx context.Context, id string, face zone.Face) (catalog.Entry, bool, error) {
	e := catalog.Entry{ID: id, Face: face}
	var elements string
	err := s.db.QueryRow(ctx, selectEntry, id, face.String()).
		Scan(&e.Name, &e.Type, &e.Cost, &e.Atk, &e.Def, &e.HP, &elements)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Entry{}, false, nil
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("catalog lookup failed", zap.String("card_id", id), zap.Error(err))
		}
		return catalog.Entry{}, false, fmt.Errorf("lookup %s: %w", id, err)
	}
	e.Elements = catalog.SplitElements(elements)
	return e, true, nil
}

// Import upserts entries in batches of batchSize, one transaction per batch.
// It returns how many rows were written.
func (s *Store) Import(ctx context.Context, entries []catalog.Entry, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	imported := 0
	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		n, err := s.importBatch(ctx, entries[i:end])
		imported += n
		if err != nil {
			return imported, err
		}
		if s.logger != nil {
			s.logger.Debug("imported catalog batch", zap.Int("imported", imported), zap.Int("total", len(entries)))
		}
	}
	return imported, nil
}

func (s *Store) importBatch(ctx context.Context, batch []catalog.Entry) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, e := range batch {
		_, err := tx.Exec(ctx, upsertEntry,
			e.ID, e.Face.String(), e.Name, e.Type, e.Cost,
			e.Atk, e.Def, e.HP, strings.Join(e.Elements, "|"),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert card %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return len(batch), nil
}

// Count returns the number of stored faces.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM cards").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// Truncate removes every stored face.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "TRUNCATE TABLE cards"); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}
	return nil
}
