package sample_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crosscheck/internal/sample"
)

const generatorReply = "Here are the examples.\n\n" +
	"```python\n# id: protocol-added-default-arg\n# EXPECTED:\n#   mypy: Error\nfrom typing import Protocol\n```\n\n" +
	"Some prose in between.\n\n" +
	"```python\n# id: final/override by property\nclass Base: ...\n```\n\n" +
	"```\nprint('no id')\n```\n" +
	"```python\n# id: protocol-added-default-arg\nx = 1\n```\n"

func TestParseGenerated(t *testing.T) {
	got := sample.ParseGenerated(generatorReply)
	require.Len(t, got, 4)

	assert.Equal(t, "protocol-added-default-arg", got[0].ID)
	assert.Contains(t, got[0].Source, "from typing import Protocol")
	assert.Equal(t, "final-override", got[1].ID)
	assert.Equal(t, "sample-3", got[2].ID)
	assert.Equal(t, "protocol-added-default-arg-2", got[3].ID)
}

func TestParseGeneratedWithoutFences(t *testing.T) {
	text := "# id: first\nx = 1\n\n# id: second\ny = 2\n"
	got := sample.ParseGenerated(text)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.NotContains(t, got[0].Source, "y = 2")
}

func TestParseGeneratedNothing(t *testing.T) {
	assert.Empty(t, sample.ParseGenerated("I could not produce examples."))
}

func TestWriteAll(t *testing.T) {
	batch := t.TempDir()
	paths, err := sample.WriteAll(batch, ".py", []sample.Generated{{ID: "a", Source: "a = 1\n"}})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(filepath.Join(batch, sample.SourceDir, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", string(data))
}
