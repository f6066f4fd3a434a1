package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitUpload   State = "WAITING_UPLOAD"
	waitTitle    State = "WAITING_TITLE"
	waitCategory State = "WAITING_CATEGORY"
)

var testTable = Table{
	waitUpload:   {Accepts: KindVideo, Next: []State{waitTitle}},
	waitTitle:    {Accepts: KindText, Next: []State{waitCategory}, Requires: []string{"file"}},
	waitCategory: {Accepts: KindCallback, Next: []State{StateIdle}, Requires: []string{"file", "title"}},
}

func newRedisMachine(t *testing.T) (*Machine, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewMachine(NewRedisStore(rdb), Options{TTL: time.Hour, Table: testTable}), srv
}

func TestMachineDefaultsToIdle(t *testing.T) {
	m, _ := newRedisMachine(t)
	st, err := m.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestMachineSetGetReset(t *testing.T) {
	ctx := context.Background()
	m, srv := newRedisMachine(t)

	require.NoError(t, m.Set(ctx, 42, waitTitle))
	st, err := m.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, waitTitle, st)

	raw, err := srv.Get("state:42")
	require.NoError(t, err)
	assert.Equal(t, "WAITING_TITLE", raw)
	assert.Equal(t, time.Hour, srv.TTL("state:42"))

	require.NoError(t, m.Set(ctx, 42, StateIdle))
	assert.False(t, srv.Exists("state:42"))

	st, err = m.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestMachineLastWriteWins(t *testing.T) {
	ctx := context.Background()
	m, _ := newRedisMachine(t)

	require.NoError(t, m.Set(ctx, 7, waitUpload))
	require.NoError(t, m.Set(ctx, 7, waitCategory))
	st, err := m.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, waitCategory, st)
}

func TestMachineRejectsUnknownState(t *testing.T) {
	m, _ := newRedisMachine(t)
	err := m.Set(context.Background(), 1, State("WAITING_NOTHING"))
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestMachineUnknownStoredValueReadsIdle(t *testing.T) {
	m, srv := newRedisMachine(t)
	require.NoError(t, srv.Set("state:9", "LEGACY_STATE"))

	st, err := m.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestMachineSessionExpires(t *testing.T) {
	ctx := context.Background()
	m, srv := newRedisMachine(t)

	require.NoError(t, m.Set(ctx, 5, waitTitle))
	require.NoError(t, m.SetScratch(ctx, 5, "file", "abc"))
	srv.FastForward(time.Hour + time.Second)

	st, err := m.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
	_, ok, err := m.Scratch(ctx, 5, "file")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMachineScratch(t *testing.T) {
	ctx := context.Background()
	m, srv := newRedisMachine(t)

	require.NoError(t, m.SetScratch(ctx, 3, "file", "BAADF00D"))
	require.NoError(t, m.SetScratch(ctx, 3, "target", "17"))

	val, ok, err := m.Scratch(ctx, 3, "file")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BAADF00D", val)
	assert.Equal(t, time.Hour, srv.TTL("file:3"))

	n, ok, err := m.ScratchInt(ctx, 3, "target")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(17), n)

	_, ok, err = m.ScratchInt(ctx, 3, "file")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.ClearScratch(ctx, 3, "file", "target"))
	assert.False(t, srv.Exists("file:3"))
	assert.False(t, srv.Exists("target:3"))
}

func TestMachineCollectReportsMissing(t *testing.T) {
	ctx := context.Background()
	m := NewMachine(NewMemoryStore(), Options{Table: testTable})

	require.NoError(t, m.SetScratch(ctx, 8, "title", "Heat"))
	values, missing, err := m.Collect(ctx, 8, waitCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"file"}, missing)
	assert.Equal(t, "Heat", values["title"])

	require.NoError(t, m.SetScratch(ctx, 8, "file", "vid"))
	values, missing, err = m.Collect(ctx, 8, waitCategory)
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, map[string]string{"file": "vid", "title": "Heat"}, values)
}

func TestMachineStoreErrorsPropagate(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	m := NewMachine(NewRedisStore(rdb), Options{Table: testTable})

	srv.SetError("LOADING")
	_, err := m.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, m.Set(context.Background(), 1, waitTitle))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, store.Set(ctx, "b", "2", 0))

	v, ok, _ := store.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(time.Minute)
	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "b", "missing"))
	assert.Equal(t, 0, store.Len())
}

func TestTableValidate(t *testing.T) {
	all := []State{StateIdle, waitUpload, waitTitle, waitCategory}
	require.NoError(t, testTable.Validate(all))

	broken := Table{
		waitUpload: {Accepts: KindVideo, Next: []State{"NOWHERE"}},
		"EXTRA":    {Accepts: KindText, Next: []State{StateIdle}},
	}
	err := broken.Validate(all)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WAITING_TITLE: no step")
	assert.Contains(t, err.Error(), "EXTRA: not in state list")
	assert.Contains(t, err.Error(), "unknown target")
}

func TestTableAccepts(t *testing.T) {
	assert.True(t, testTable.Accepts(waitUpload, KindVideo))
	assert.False(t, testTable.Accepts(waitUpload, KindText))
	assert.False(t, testTable.Accepts(StateIdle, KindText))
}
