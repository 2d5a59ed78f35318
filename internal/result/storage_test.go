package result_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/sample"
)

func TestCreateBatch(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 1, 8, 16, 42, 53, 0, time.UTC)

	dir, err := result.CreateBatch(base, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-08_16-42-53", filepath.Base(dir))
	assert.DirExists(t, filepath.Join(dir, sample.SourceDir))

	target, err := os.Readlink(filepath.Join(base, "latest"))
	require.NoError(t, err)
	assert.Equal(t, dir, target)

	_, err = result.CreateBatch(base, now)
	assert.Error(t, err, "a batch id is never reused")
}

func TestLatestBatchDir(t *testing.T) {
	base := t.TempDir()
	for _, ts := range []time.Time{
		time.Date(2026, 1, 8, 16, 42, 53, 0, time.UTC),
		time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
	} {
		_, err := result.CreateBatch(base, ts)
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(base, "scratch"), 0o755))

	latest, err := result.LatestBatchDir(base)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01_09-00-00", filepath.Base(latest))

	dirs, err := result.ListBatches(base)
	require.NoError(t, err)
	assert.Len(t, dirs, 3)
}

func TestLatestBatchDirEmpty(t *testing.T) {
	_, err := result.LatestBatchDir(t.TempDir())
	assert.True(t, errors.Is(err, result.ErrNoBatches))

	_, err = result.LatestBatchDir(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, result.ErrNoBatches))
}

func TestLoadMissingResults(t *testing.T) {
	_, err := result.Load(t.TempDir())
	assert.True(t, errors.Is(err, result.ErrMissingResults))
}
