package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a new bbolt store in a temp directory for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// ==================== Store Tests ====================

func TestStore_Open(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "runs.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	v, err := st.GetValue(keyVersion)
	require.NoError(t, err)
	assert.Equal(t, logVersion, v)
}

func TestStore_Open_RejectsOtherVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.SetValue(keyVersion, "99"))
	require.NoError(t, st.Close())

	_, err = Open(dbPath)
	assert.ErrorIs(t, err, ErrLogVersion)
}

func TestStore_GetSetValue(t *testing.T) {
	st := newTestStore(t)

	err := st.SetValue("test_key", "test_value")
	require.NoError(t, err)

	val, err := st.GetValue("test_key")
	require.NoError(t, err)
	assert.Equal(t, "test_value", val)

	// Get non-existent key returns empty
	val, err = st.GetValue("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	err = st.SetValue("test_key", "new_value")
	require.NoError(t, err)

	val, err = st.GetValue("test_key")
	require.NoError(t, err)
	assert.Equal(t, "new_value", val)
}

// ==================== Runs Tests ====================

func TestStore_RecordAndGetRun(t *testing.T) {
	st := newTestStore(t)

	run := &models.Run{
		Operation:         "renumber",
		Args:              []string{"annotations.json"},
		Input:             "annotations.json",
		Output:            "annotations.json",
		FingerprintBefore: "aaa",
		FingerprintAfter:  "bbb",
		Report:            json.RawMessage(`{"images":{"3":1}}`),
	}
	require.NoError(t, st.RecordRun(run))

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, uint64(1), run.Seq)
	assert.False(t, run.Timestamp.IsZero())

	got, err := st.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "renumber", got.Operation)
	assert.Equal(t, []string{"annotations.json"}, got.Args)
	assert.True(t, got.Changed())
	assert.JSONEq(t, `{"images":{"3":1}}`, string(got.Report))

	last, err := st.GetValue(KeyLastOutput)
	require.NoError(t, err)
	assert.Equal(t, "annotations.json", last)
}

func TestStore_LastOutputOnlyForDatasets(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.RecordRun(&models.Run{Operation: "filter", Output: "filtered.json", FingerprintAfter: "ccc"}))
	require.NoError(t, st.RecordRun(&models.Run{Operation: "masks", Output: "masks/"}))

	last, err := st.GetValue(KeyLastOutput)
	require.NoError(t, err)
	assert.Equal(t, "filtered.json", last)
}

func TestStore_RecordRun_DuplicateID(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.RecordRun(&models.Run{ID: "fixed", Operation: "check"}))
	assert.Error(t, st.RecordRun(&models.Run{ID: "fixed", Operation: "check"}))
}

func TestStore_GetRun_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestStore_GetRunByShortID(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.RecordRun(&models.Run{ID: "abc123def456", Operation: "filter"}))
	require.NoError(t, st.RecordRun(&models.Run{ID: "abd999", Operation: "reset"}))

	got, err := st.GetRunByShortID("abc1")
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", got.ID)

	// Ambiguous prefix
	_, err = st.GetRunByShortID("ab")
	assert.Error(t, err)

	_, err = st.GetRunByShortID("zz")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestStore_ListRuns(t *testing.T) {
	st := newTestStore(t)

	for i := 0; i < 5; i++ {
		run := &models.Run{Operation: fmt.Sprintf("op-%d", i)}
		require.NoError(t, st.RecordRun(run))
	}

	// Newest first
	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
	assert.Equal(t, "op-4", runs[0].Operation)
	assert.Equal(t, "op-0", runs[4].Operation)
	assert.Equal(t, uint64(5), runs[0].Seq)

	runs, err = st.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	n, err := st.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.RecordRun(&models.Run{Operation: "merge"}))
	require.NoError(t, st.Close())

	st, err = Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run := &models.Run{Operation: "copy"}
	require.NoError(t, st.RecordRun(run))
	assert.Equal(t, uint64(2), run.Seq)
}
