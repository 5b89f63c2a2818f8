package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestManagerLifecycle(t *testing.T) {
	store := newStore(t)
	manager := NewManager(store)
	ctx := context.Background()

	_, _, ok := manager.Current()
	assert.False(t, ok)

	require.NoError(t, manager.SetCurrent(ctx, Credentials{
		UserID:   "user_a",
		Username: "Ada",
		Token:    "opaque-token",
	}))

	userID, token, ok := manager.Current()
	require.True(t, ok)
	assert.Equal(t, "user_a", userID)
	assert.Equal(t, "opaque-token", token)

	token, ok = manager.Token()
	require.True(t, ok)
	assert.Equal(t, "opaque-token", token)

	require.NoError(t, manager.Clear(ctx))
	_, _, ok = manager.Current()
	assert.False(t, ok)
}

func TestManagerRejectsIncompleteCredentials(t *testing.T) {
	manager := NewManager(newStore(t))

	err := manager.SetCurrent(context.Background(), Credentials{UserID: "user_a"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	err = manager.SetCurrent(context.Background(), Credentials{Token: "opaque-token"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestManagerResumesPersistedSession(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, NewManager(store).SetCurrent(ctx, Credentials{
		UserID: "user_a",
		Token:  "opaque-token",
	}))

	// A fresh manager over the same store sees the same login.
	userID, _, ok := NewManager(store).Current()
	require.True(t, ok)
	assert.Equal(t, "user_a", userID)
}
