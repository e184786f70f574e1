package credentials

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "supervisorctl-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Cleanup(func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) })

	store, err := NewStore()
	require.NoError(t, err)
	return store
}

func TestLockAndUnlock(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetContext("default", &Context{SimulatorAddr: "127.0.0.1:10020"}))

	ctx, err := store.GetContext("default")
	require.NoError(t, err)
	assert.False(t, ctx.IsLocked())

	require.NoError(t, store.Lock("default", "hunter2"))

	ctx, err = store.GetContext("default")
	require.NoError(t, err)
	assert.True(t, ctx.IsLocked())
	assert.NotEqual(t, "hunter2", ctx.PassphraseHash)

	assert.NoError(t, store.Unlock("default", "hunter2"))
	assert.ErrorIs(t, store.Unlock("default", "wrong"), ErrWrongPassphrase)
}

func TestUnlockWithoutLockReturnsErrNotLocked(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetContext("default", &Context{SimulatorAddr: "127.0.0.1:10020"}))

	assert.ErrorIs(t, store.Unlock("default", "anything"), ErrNotLocked)
}

func TestLockUnknownContext(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.Lock("missing", "x"), ErrContextNotFound)
	assert.ErrorIs(t, store.Unlock("missing", "x"), ErrContextNotFound)
}

func TestRemoveLock(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetContext("default", &Context{SimulatorAddr: "127.0.0.1:10020"}))
	require.NoError(t, store.Lock("default", "hunter2"))

	assert.ErrorIs(t, store.RemoveLock("default", "wrong"), ErrWrongPassphrase)

	require.NoError(t, store.RemoveLock("default", "hunter2"))
	ctx, err := store.GetContext("default")
	require.NoError(t, err)
	assert.False(t, ctx.IsLocked())
}
