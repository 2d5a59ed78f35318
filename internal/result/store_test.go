package result_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crosscheck/internal/result"
)

func outcome(sampleID, tool, output string, status result.Status) result.Outcome {
	return result.Outcome{SampleID: sampleID, Tool: tool, Output: output, Status: status}
}

func TestRecordOutcomeIsIdempotent(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "a.py:1: error: x", result.StatusIssuesFound), "/s/a.py"))
		require.NoError(t, store.RecordOutcome(outcome("a.py", "ty", "", result.StatusSuccess), "/s/a.py"))
	}

	snap := store.Snapshot()
	require.Len(t, snap.Doc.Results, 1)
	assert.Len(t, snap.Outcomes(), 2)
	assert.Equal(t, "/s/a.py", snap.Doc.Results[0].Filepath)
}

func TestStorePersistsSchema(t *testing.T) {
	dir := t.TempDir()
	store, err := result.OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetTools([]string{"mypy", "ty"}))
	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "Success: no issues found", result.StatusSuccess), "/s/a.py"))

	data, err := os.ReadFile(filepath.Join(dir, result.ResultsFile))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, filepath.Base(dir), raw["timestamp"])
	assert.Equal(t, []any{"mypy", "ty"}, raw["checkers_used"])

	results := raw["results"].([]any)
	require.Len(t, results, 1)
	entry := results[0].(map[string]any)
	assert.Equal(t, "a.py", entry["filename"])
	assert.Equal(t, "/s/a.py", entry["filepath"])
	assert.Equal(t, map[string]any{"mypy": "Success: no issues found"}, entry["outputs"])
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := result.OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "out", result.StatusIssuesFound), "/s/a.py"))
	require.NoError(t, store.RecordVerdict(result.Verdict{SampleID: "a.py", Tool: "mypy", Label: result.LabelCorrect, Rationale: "ok", Attempts: 1}))

	reopened, err := result.OpenStore(dir)
	require.NoError(t, err)
	snap := reopened.Snapshot()
	require.Len(t, snap.Verdicts(), 1)
	assert.Equal(t, result.LabelCorrect, snap.Verdicts()[0].Label)
	assert.Equal(t, result.StatusIssuesFound, snap.Outcomes()[0].Status)

	loaded, err := result.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, snap.Doc, loaded.Doc)
}

func TestRecordVerdictRequiresOutcome(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)

	err = store.RecordVerdict(result.Verdict{SampleID: "a.py", Tool: "mypy", Label: result.LabelCorrect})
	assert.True(t, errors.Is(err, result.ErrNoOutcome))

	require.NoError(t, store.RecordOutcome(outcome("a.py", "ty", "", result.StatusSuccess), ""))
	err = store.RecordVerdict(result.Verdict{SampleID: "a.py", Tool: "mypy", Label: result.LabelCorrect})
	assert.True(t, errors.Is(err, result.ErrNoOutcome))
}

func TestChangedOutputDropsVerdict(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "first", result.StatusIssuesFound), ""))
	require.NoError(t, store.RecordVerdict(result.Verdict{SampleID: "a.py", Tool: "mypy", Label: result.LabelCorrect}))

	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "first", result.StatusIssuesFound), ""))
	assert.Equal(t, result.StageJudged, store.Snapshot().Stage("a.py", "mypy"), "identical output keeps the verdict")

	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "second", result.StatusIssuesFound), ""))
	assert.Equal(t, result.StageRunComplete, store.Snapshot().Stage("a.py", "mypy"))
}

func TestSetToolsIsFixed(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SetTools([]string{"mypy", "ty"}))
	require.NoError(t, store.SetTools([]string{"mypy", "ty"}))

	err = store.SetTools([]string{"mypy"})
	assert.True(t, errors.Is(err, result.ErrToolSetChanged))
}

func TestStages(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, result.StagePending, store.Snapshot().Stage("a.py", "mypy"))

	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "", result.StatusSuccess), ""))
	assert.Equal(t, result.StageRunComplete, store.Snapshot().Stage("a.py", "mypy"))
	assert.Equal(t, result.StagePending, store.Snapshot().Stage("a.py", "ty"))

	require.NoError(t, store.RecordVerdict(result.Verdict{SampleID: "a.py", Tool: "mypy", Label: result.LabelError}))
	assert.Equal(t, result.StageJudged, store.Snapshot().Stage("a.py", "mypy"))
	assert.Equal(t, "JUDGED", result.StageJudged.String())
}

func TestPendingAndUnjudged(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SetTools([]string{"mypy", "ty"}))
	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "", result.StatusSuccess), ""))
	require.NoError(t, store.RecordOutcome(outcome("a.py", "ty", "", result.StatusSuccess), ""))
	require.NoError(t, store.RecordOutcome(outcome("b.py", "mypy", "", result.StatusSuccess), ""))
	require.NoError(t, store.RecordVerdict(result.Verdict{SampleID: "a.py", Tool: "ty", Label: result.LabelCorrect}))

	snap := store.Snapshot()
	assert.Equal(t, []result.Pair{
		{SampleID: "b.py", Tool: "ty"},
		{SampleID: "c.py", Tool: "mypy"},
		{SampleID: "c.py", Tool: "ty"},
	}, snap.Pending([]string{"a.py", "c.py"}))
	assert.Equal(t, []result.Pair{
		{SampleID: "a.py", Tool: "mypy"},
		{SampleID: "b.py", Tool: "mypy"},
	}, snap.Unjudged())
}

func TestSnapshotIsIsolated(t *testing.T) {
	store, err := result.OpenStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "x", result.StatusSuccess), ""))

	snap := store.Snapshot()
	snap.Doc.Results[0].Outputs["mypy"] = "mutated"
	assert.Equal(t, "x", store.Snapshot().Doc.Results[0].Outputs["mypy"])
}

func TestConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	dir := t.TempDir()
	store, err := result.OpenStore(dir)
	require.NoError(t, err)

	tools := []string{"mypy", "pyrefly", "zuban", "ty"}
	var wg sync.WaitGroup
	for s := 0; s < 10; s++ {
		for _, tool := range tools {
			wg.Add(1)
			go func(s int, tool string) {
				defer wg.Done()
				id := fmt.Sprintf("s%02d.py", s)
				assert.NoError(t, store.RecordOutcome(outcome(id, tool, "out", result.StatusSuccess), ""))
			}(s, tool)
		}
	}
	wg.Wait()

	loaded, err := result.Load(dir)
	require.NoError(t, err)
	assert.Len(t, loaded.Outcomes(), 40)
}

func TestRecordOutcomeOnEntryWithNullOutputs(t *testing.T) {
	dir := t.TempDir()
	doc := `{"timestamp":"x","checkers_used":["mypy"],"results":[{"filename":"a.py","filepath":"a.py","outputs":null}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, result.ResultsFile), []byte(doc), 0o644))

	store, err := result.OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(outcome("a.py", "mypy", "ok", result.StatusSuccess), ""))

	snap := store.Snapshot()
	require.Len(t, snap.Doc.Results, 1)
	assert.Equal(t, "ok", snap.Doc.Results[0].Outputs["mypy"])
}
