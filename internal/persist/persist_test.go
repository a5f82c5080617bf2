package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/db"
)

type failingStore struct {
	loadErr error
	saves   int
}

func (f *failingStore) Load(ctx context.Context) ([]byte, error) { return nil, f.loadErr }

func (f *failingStore) Save(ctx context.Context, data []byte) error {
	f.saves++
	return errors.New("disk full")
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewSQLiteStore(database.Conn())
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestBackends_LoadSave(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	backends := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
		"redis":  redisStore,
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := backend.Load(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, backend.Save(ctx, []byte(`{"v":1}`)))
			require.NoError(t, backend.Save(ctx, []byte(`{"v":2}`)))

			data, err := backend.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, `{"v":2}`, string(data))
		})
	}
}

func TestRedisStore_UsesFixedKey(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Save(context.Background(), []byte(`{}`)))

	got, err := mr.Get(Key)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestRestore_Empty(t *testing.T) {
	snap := Restore(context.Background(), NewMemoryStore(), nil)
	assert.Empty(t, snap.Videos)
	assert.Empty(t, snap.CurrentVideoID)
}

func TestRestore_LoadError(t *testing.T) {
	snap := Restore(context.Background(), &failingStore{loadErr: errors.New("io")}, nil)
	assert.Empty(t, snap.Videos)
}

func TestRestore_Malformed(t *testing.T) {
	backend := NewMemoryStore()
	require.NoError(t, backend.Save(context.Background(), []byte("{broken")))

	snap := Restore(context.Background(), backend, nil)
	assert.Empty(t, snap.Videos)
	assert.Empty(t, snap.CurrentVideoID)
}

func TestAttach_PersistsEveryMutation(t *testing.T) {
	backend := newSQLiteStore(t)
	store := clips.NewStore(clips.EmptySnapshot(), nil)
	detach := Attach(store, backend, nil)
	defer detach()

	store.AddVideo("1", "https://example.com/a.mp4", "A", "")
	last, err := store.AddClip("1", clips.Clip{ID: "c", Name: "Goal", Start: 3, End: clips.Seconds(8), Tags: []string{}})
	require.NoError(t, err)

	restored := Restore(context.Background(), backend, nil)
	assert.True(t, last.Equal(restored))

	last = store.DeleteVideo("1")
	restored = Restore(context.Background(), backend, nil)
	assert.True(t, last.Equal(restored))
	assert.Empty(t, restored.CurrentVideoID)
}

func TestAttach_SaveFailureDoesNotBreakStore(t *testing.T) {
	backend := &failingStore{}
	store := clips.NewStore(clips.EmptySnapshot(), nil)
	Attach(store, backend, nil)

	snap := store.AddVideo("1", "u", "n", "")
	assert.Equal(t, "1", snap.CurrentVideoID)
	assert.Equal(t, 1, backend.saves)
}

func TestRestoreAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")
	ctx := context.Background()

	first, err := db.New(path, nil)
	require.NoError(t, err)
	store := clips.NewStore(clips.EmptySnapshot(), nil)
	Attach(store, NewSQLiteStore(first.Conn()), nil)
	want := sampleSnapshotFrom(store)
	require.NoError(t, first.Close())

	second, err := db.New(path, nil)
	require.NoError(t, err)
	defer second.Close()

	got := Restore(ctx, NewSQLiteStore(second.Conn()), nil)
	assert.True(t, want.Equal(got))
}

func sampleSnapshotFrom(s *clips.Store) clips.Snapshot {
	s.AddVideo("10", "https://example.com/x.mp4", "X", "/icons/icon-3.jpg")
	_, _ = s.AddClip("10", clips.Clip{ID: "k", Name: "Kickoff", Start: 0, End: clips.Seconds(4), Tags: []string{"start"}})
	return s.SetCurrentClip("10", "k")
}
