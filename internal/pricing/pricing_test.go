package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crosscheck/internal/pricing"
)

func TestLoadPricing(t *testing.T) {
	content := `gemini-2.5-pro:
  input: 1.25
  output: 10
gpt-4o-mini:
  input: 0.15
  output: 0.6
`
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := pricing.Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.00625, table.Cost("gemini-2.5-pro", 1000, 500), 1e-9)
	assert.InDelta(t, 0.00625, table.Cost("gemini-2.5-pro-preview-06-05", 1000, 500), 1e-9)
}

func TestCostUnknownModel(t *testing.T) {
	table := &pricing.Table{}
	assert.Zero(t, table.Cost("unknown", 1000, 500))

	var missing *pricing.Table
	_, ok := missing.Lookup("gemini-2.5-pro")
	assert.False(t, ok)
}

func TestLoadMissing(t *testing.T) {
	_, err := pricing.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBundledTable(t *testing.T) {
	table, err := pricing.Load("../../testdata/pricing.yaml")
	require.NoError(t, err)

	p, ok := table.Lookup("gemini-2.5-flash-lite")
	require.True(t, ok)
	assert.InDelta(t, 0.3, p.Input, 1e-9)
	assert.InDelta(t, 2.5, table.Cost("gemini-2.5-flash", 0, 1_000_000), 1e-9)
}
