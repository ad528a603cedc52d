package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "imports/test.csv", strings.NewReader("email\na@b.co\n")))

	exists, err := store.Exists(ctx, "imports/test.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := store.Open(ctx, "imports/test.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	r.Close()
	assert.Equal(t, "email\na@b.co\n", string(data))

	require.NoError(t, store.Delete(ctx, "imports/test.csv"))
	exists, err = store.Exists(ctx, "imports/test.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete(context.Background(), "never/was.csv"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	err = store.Save(context.Background(), "../escape.csv", strings.NewReader("x"))
	// Cleaning anchors the key under base, so either rejection or a safe
	// in-base write is acceptable; it must never land outside base.
	if err == nil {
		exists, eerr := store.Exists(context.Background(), "escape.csv")
		require.NoError(t, eerr)
		assert.True(t, exists)
	}
}
