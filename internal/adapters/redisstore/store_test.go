package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcTrendAnalyzer/internal/ports"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewStore(context.Background(), Config{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: time.Second,
		Logger:      ports.NopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Addr: "localhost:6379"})
	assert.Error(t, err)

	_, err = NewStore(context.Background(), Config{Logger: ports.NopLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigInvalid)
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	require.NoError(t, store.Set(ctx, "btc:current_price", []byte(`{"price":50000}`)))

	got, err := store.Get(ctx, "btc:current_price")
	require.NoError(t, err)
	assert.Equal(t, `{"price":50000}`, string(got))

	raw, err := mr.Get("btc:current_price")
	require.NoError(t, err)
	assert.Equal(t, `{"price":50000}`, raw)
	assert.Zero(t, mr.TTL("btc:current_price"), "published keys never expire")
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := setupStore(t)
	_, err := store.Get(context.Background(), "trend_5min")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	for _, k := range []string{"btc:trend_5min", "btc:current_price", "other"} {
		require.NoError(t, store.Set(ctx, k, []byte("v")))
	}

	keys, err := store.Keys(ctx, "btc:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"btc:current_price", "btc:trend_5min"}, keys)

	all, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)
	mr.Close()

	err := store.Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrStoreTransient)
}

func TestNewStore_UnreachableIsDegraded(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	store, err := NewStore(context.Background(), Config{
		Addr:        addr,
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		Logger:      ports.NopLogger{},
	})
	require.NoError(t, err)
	defer store.Close()
	assert.Error(t, store.Set(context.Background(), "k", []byte("v")))
}
