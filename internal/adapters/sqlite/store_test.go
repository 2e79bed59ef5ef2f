package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcTrendAnalyzer/internal/ports"
)

// setupTestDB creates a store in a temporary directory.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(Config{
		DBPath: dbPath,
		Logger: ports.NopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_RequiresLogger(t *testing.T) {
	_, err := NewStore(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		writes map[string]string
		key    string
		want   string
	}{
		{
			name:   "single write",
			writes: map[string]string{"current_price": `{"price":1}`},
			key:    "current_price",
			want:   `{"price":1}`,
		},
		{
			name:   "prefixed key",
			writes: map[string]string{"btc:trend_5min": `{"label":"Neutral"}`},
			key:    "btc:trend_5min",
			want:   `{"label":"Neutral"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestDB(t)
			for k, v := range tt.writes {
				require.NoError(t, store.Set(ctx, k, []byte(v)))
			}
			got, err := store.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	require.NoError(t, store.Set(ctx, "k", []byte("one")))
	require.NoError(t, store.Set(ctx, "k", []byte("two")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestStore_GetMissing(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_CanceledContext(t *testing.T) {
	store := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "state.db")

	first, err := NewStore(Config{DBPath: dbPath, Logger: ports.NopLogger{}})
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "fibonacci_levels", []byte("levels")))
	require.NoError(t, first.Close())

	second, err := NewStore(Config{DBPath: dbPath, Logger: ports.NopLogger{}})
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Get(ctx, "fibonacci_levels")
	require.NoError(t, err)
	assert.Equal(t, "levels", string(got))
}
