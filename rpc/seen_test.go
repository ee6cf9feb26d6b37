package rpc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeenStorePersistsAndExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen")
	store, err := openSeenStore(path)
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	fresh, err := store.remember("aa", now, time.Minute)
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = store.remember("aa", now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	require.False(t, fresh)
	require.NoError(t, store.Close())

	reopened, err := openSeenStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	fresh, err = reopened.remember("aa", now.Add(2*time.Second), time.Minute)
	require.NoError(t, err)
	require.False(t, fresh, "hash should survive a restart")

	fresh, err = reopened.remember("aa", now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	require.True(t, fresh, "hash should expire after the ttl")
}

func TestSeenStoreForget(t *testing.T) {
	store, err := openSeenStore("")
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	_, err = store.remember("bb", now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.forget("bb"))
	require.NoError(t, store.forget("missing"))
	fresh, err := store.remember("bb", now, time.Minute)
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestSourceLimiter(t *testing.T) {
	limiter := newSourceLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)
	require.True(t, limiter.allow("a", now))
	require.True(t, limiter.allow("a", now))
	require.False(t, limiter.allow("a", now))
	require.True(t, limiter.allow("b", now))
	require.True(t, limiter.allow("a", now.Add(time.Second)))

	require.True(t, newSourceLimiter(0, 0).allow("a", now))
}
