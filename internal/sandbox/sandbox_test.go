package sandbox_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crosscheck/internal/sandbox"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("CROSSCHECK_DOCKER_TESTS") == "" {
		t.Skip("set CROSSCHECK_DOCKER_TESTS=1 to run Docker tests")
	}
}

func TestRunContainer(t *testing.T) {
	requireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))

	res, err := sandbox.RunContainer(ctx, &sandbox.RunOpts{
		Image:     "alpine:latest",
		Command:   []string{"cat", sandbox.MountPoint + "/a.py"},
		SampleDir: dir,
		Timeout:   30 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "x = 1\n", res.Output)
}

func TestRunContainerReadOnlyMount(t *testing.T) {
	requireDocker(t)
	dir := t.TempDir()

	res, err := sandbox.RunContainer(context.Background(), &sandbox.RunOpts{
		Image:     "alpine:latest",
		Command:   []string{"touch", sandbox.MountPoint + "/new.py"},
		SampleDir: dir,
		Timeout:   30 * time.Second,
	})
	require.NoError(t, err)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.NoFileExists(t, filepath.Join(dir, "new.py"))
}

func TestRunContainerTimeout(t *testing.T) {
	requireDocker(t)

	res, err := sandbox.RunContainer(context.Background(), &sandbox.RunOpts{
		Image:     "alpine:latest",
		Command:   []string{"sleep", "300"},
		SampleDir: t.TempDir(),
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, sandbox.TimeoutExitCode, res.ExitCode)
}

func TestRunContainerCrash(t *testing.T) {
	requireDocker(t)

	res, err := sandbox.RunContainer(context.Background(), &sandbox.RunOpts{
		Image:     "alpine:latest",
		Command:   []string{"sh", "-c", "echo boom; exit 3"},
		SampleDir: t.TempDir(),
		Timeout:   10 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Output, "boom")
}
