package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRead(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.Record(1, []byte("req-1"), []byte("rep-1")))

	entry, err := j.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("req-1"), entry.Request)
	assert.Equal(t, []byte("rep-1"), entry.Reply)
}

func TestReadMissingStep(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Read(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplayInOrder(t *testing.T) {
	j := openTestJournal(t)

	for step := int64(1); step <= 5; step++ {
		require.NoError(t, j.Record(step, []byte{byte(step)}, []byte{byte(step) + 100}))
	}

	var seen []int64
	err := j.Replay(1, func(e Entry) error {
		seen = append(seen, e.Step)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
}

func TestReplayFromMidpoint(t *testing.T) {
	j := openTestJournal(t)
	for step := int64(1); step <= 3; step++ {
		require.NoError(t, j.Record(step, nil, nil))
	}

	var seen []int64
	err := j.Replay(2, func(e Entry) error {
		seen = append(seen, e.Step)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, seen)
}

func TestPruneRemovesOldSteps(t *testing.T) {
	j, err := Open(t.TempDir(), 2)
	require.NoError(t, err)
	defer j.Close()

	for step := int64(1); step <= 5; step++ {
		require.NoError(t, j.Record(step, nil, nil))
	}
	require.NoError(t, j.Prune(5))

	_, err = j.Read(2)
	assert.ErrorIs(t, err, ErrNotFound)

	entry, err := j.Read(4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Step)
}
