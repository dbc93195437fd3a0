package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

const sampleCSV = `id,face,name,type,cost,atk,def,hp,elements
u-001,front,River Sprite,Unit,2W1A,2,1,3,Water
u-001,back,River Queen,Unit,3W,4,2,5,Water|Wind
p-001,,Tide Caller,Partner,,0,0,0,Water;Light
bad,front,Broken,Unit,1F,x,0,0,Fire
,front,Nameless,Unit,1F,1,1,1,Fire
`

func TestReadCSV(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sampleCSV), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		ID: "u-001", Face: zone.Front, Name: "River Sprite", Type: "unit", Cost: "2W1A",
		Atk: 2, Def: 1, HP: 3, Elements: []string{"Water"},
	}, entries[0])
	assert.Equal(t, zone.Back, entries[1].Face)
	assert.Equal(t, []string{"Water", "Wind"}, entries[1].Elements)
	assert.Equal(t, []string{"Water", "Light"}, entries[2].Elements)
	assert.True(t, entries[2].Is(TypePartner))
}

func TestReadCSV_BadHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,id\nx,y\n"), nil)
	assert.True(t, errors.Is(err, ErrBadHeader))
}

func TestMemoryLookupAndResolve(t *testing.T) {
	m := NewMemory(Entry{ID: "a", Name: "Alpha", Type: TypeUnit, Atk: 1})
	ctx := context.Background()

	e, ok, err := m.Lookup(ctx, "a", zone.Front)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alpha", e.Name)

	_, ok, _ = m.Lookup(ctx, "a", zone.Back)
	assert.False(t, ok, "faces are stored independently")

	e, err = Resolve(ctx, m, "missing", zone.Front)
	require.NoError(t, err)
	assert.Equal(t, Fallback("missing", zone.Front), e)

	e, err = Resolve(ctx, nil, "x", zone.Back)
	require.NoError(t, err)
	assert.Equal(t, 0, e.HP)
}

type countingCatalog struct {
	calls int
	err   error
}

func (c *countingCatalog) Lookup(_ context.Context, id string, face zone.Face) (Entry, bool, error) {
	c.calls++
	if c.err != nil {
		return Entry{}, false, c.err
	}
	if id == "known" {
		return Entry{ID: id, Face: face, HP: 4}, true, nil
	}
	return Entry{}, false, nil
}

func TestCached(t *testing.T) {
	backend := &countingCatalog{}
	c := NewCached(backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e, ok, err := c.Lookup(ctx, "known", zone.Front)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 4, e.HP)
		_, ok, _ = c.Lookup(ctx, "unknown", zone.Front)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, backend.calls)
	hits, misses := c.Stats()
	assert.Equal(t, 4, hits)
	assert.Equal(t, 2, misses)

	c.Purge()
	backend.err = errors.New("down")
	_, _, err := c.Lookup(ctx, "known", zone.Front)
	assert.Error(t, err)
	backend.err = nil
	_, ok, err := c.Lookup(ctx, "known", zone.Front)
	require.NoError(t, err)
	assert.True(t, ok, "errors are not cached")
}

func TestResolveFallsBackOnError(t *testing.T) {
	e, err := Resolve(context.Background(), &countingCatalog{err: errors.New("down")}, "known", zone.Front)
	assert.Error(t, err)
	assert.Equal(t, Fallback("known", zone.Front), e)
}
