package whatsapp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredStoreAbsentItemsRead(t *testing.T) {
	repos := newTestRepos(t)
	store := NewCredStore(repos.Credentials, "inst-1")
	ctx := context.Background()

	items, err := store.Get(ctx, "pre-key", []string{"1", "2"})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = store.Get(ctx, "pre-key", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCredStoreBatchSetAndDelete(t *testing.T) {
	repos := newTestRepos(t)
	store := NewCredStore(repos.Credentials, "inst-1")
	ctx := context.Background()

	err := store.Set(ctx, map[string]map[string][]byte{
		"pre-key": {
			"1": []byte("k1"),
			"2": []byte("k2"),
		},
		"session": {
			"a@s": []byte("s1"),
		},
	})
	require.NoError(t, err)

	items, err := store.Get(ctx, "pre-key", []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, []byte("k1"), items["1"])
	assert.Equal(t, []byte("k2"), items["2"])
	assert.NotContains(t, items, "3")

	// Overwrite one item, delete another in the same batch.
	err = store.Set(ctx, map[string]map[string][]byte{
		"pre-key": {
			"1": []byte("k1-rotated"),
			"2": nil,
		},
	})
	require.NoError(t, err)

	items, err = store.Get(ctx, "pre-key", []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []byte("k1-rotated"), items["1"])
	assert.NotContains(t, items, "2")
}

func TestCredStoreSessionsAreIsolated(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	a := NewCredStore(repos.Credentials, "inst-a")
	b := NewCredStore(repos.Credentials, "inst-b")

	require.NoError(t, a.Set(ctx, map[string]map[string][]byte{
		"session": {"peer": []byte("from-a")},
	}))

	items, err := b.Get(ctx, "session", []string{"peer"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCredStorePrimaryDocRoundtrip(t *testing.T) {
	repos := newTestRepos(t)
	store := NewCredStore(repos.Credentials, "inst-1")
	ctx := context.Background()

	_, ok, err := store.LoadCreds(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveCreds(ctx, []byte(`{"jid":"5511999999999@s.whatsapp.net"}`)))

	doc, ok, err := store.LoadCreds(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"jid":"5511999999999@s.whatsapp.net"}`, string(doc))
}

func TestCredStorePurge(t *testing.T) {
	repos := newTestRepos(t)
	store := NewCredStore(repos.Credentials, "inst-1")
	ctx := context.Background()

	require.NoError(t, store.SaveCreds(ctx, []byte("doc")))
	require.NoError(t, store.Set(ctx, map[string]map[string][]byte{
		"pre-key": {"1": []byte("k1")},
	}))

	count, err := repos.Credentials.CountSession(ctx, "inst-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, store.Purge(ctx))

	count, err = repos.Credentials.CountSession(ctx, "inst-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, ok, err := store.LoadCreds(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
