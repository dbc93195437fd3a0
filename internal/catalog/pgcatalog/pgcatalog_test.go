package pgcatalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		}
	}
	return nil
}

type fakeDB struct {
	row     fakeRow
	lastSQL string
	args    []any
	execErr error
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.args = args
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions unavailable")
}

func TestStoreLookup(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{"River Queen", "unit", "3W", 4, 2, 5, "Water|Wind"}}}
	s := New(db, zaptest.NewLogger(t))

	e, ok, err := s.Lookup(context.Background(), "u-001", zone.Back)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, catalog.Entry{
		ID: "u-001", Face: zone.Back, Name: "River Queen", Type: "unit", Cost: "3W",
		Atk: 4, Def: 2, HP: 5, Elements: []string{"Water", "Wind"},
	}, e)
	assert.Equal(t, []any{"u-001", "back"}, db.args)
}

func TestStoreLookupMissing(t *testing.T) {
	s := New(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, nil)
	_, ok, err := s.Lookup(context.Background(), "nope", zone.Front)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreLookupError(t *testing.T) {
	s := New(&fakeDB{row: fakeRow{err: errors.New("connection reset")}}, zaptest.NewLogger(t))
	_, ok, err := s.Lookup(context.Background(), "x", zone.Front)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestStoreImportBeginFailure(t *testing.T) {
	s := New(&fakeDB{}, nil)
	n, err := s.Import(context.Background(), []catalog.Entry{{ID: "a"}}, 10)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestStoreMigrateAndCount(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{int64(12)}}}
	s := New(db, nil)
	require.NoError(t, s.Migrate(context.Background()))
	assert.Equal(t, Schema, db.lastSQL)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	db.execErr = errors.New("permission denied")
	assert.Error(t, s.Migrate(context.Background()))
}

func TestStoreTruncate(t *testing.T) {
	db := &fakeDB{}
	s := New(db, zaptest.NewLogger(t))
	require.NoError(t, s.Truncate(context.Background()))
	assert.Equal(t, "TRUNCATE TABLE cards", db.lastSQL)

	db.execErr = errors.New("permission denied")
	assert.Error(t, s.Truncate(context.Background()))
}
