package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".eosemu.lock")

	first := NewFileLock(p)
	require.NoError(t, first.Lock())
	assert.True(t, IsLock(p))

	second := NewFileLock(p)
	assert.ErrorIs(t, second.Lock(), ErrLocked)
	assert.ErrorIs(t, second.RLock(), ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())
	assert.False(t, IsLock(p))

	require.NoError(t, second.RLock())
	other := NewFileLock(p)
	require.NoError(t, other.RLock(), "shared locks coexist")
	require.NoError(t, other.RUnlock())
	require.NoError(t, second.RUnlock())
}

func TestRLockMissingFile(t *testing.T) {
	l := NewFileLock(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, l.RLock(), ErrFileNotExist)
}
