package result

import (
	"path/filepath"
	"sort"
)

// Snapshot is an immutable view of a batch's results.
type Snapshot struct {
	Dir string
	Doc *Document
}

// Load reads a batch's results for downstream consumers.
func Load(batchDir string) (*Snapshot, error) {
	dir, err := filepath.Abs(batchDir)
	if err != nil {
		return nil, err
	}
	doc, err := readDocument(filepath.Join(dir, ResultsFile))
	if err != nil {
		return nil, err
	}
	return &Snapshot{Dir: dir, Doc: doc}, nil
}

func (s *Snapshot) ID() string { return s.Doc.Timestamp }

// Outcomes lists every recorded outcome ordered by sample then tool.
func (s *Snapshot) Outcomes() []Outcome {
	var out []Outcome
	for _, e := range s.Doc.Results {
		for _, tool := range sortedKeys(e.Outputs) {
			run := e.Runs[tool]
			out = append(out, Outcome{
				BatchID:     s.Doc.Timestamp,
				SampleID:    e.Filename,
				Tool:        tool,
				Output:      e.Outputs[tool],
				Status:      run.Status,
				ExitCode:    run.ExitCode,
				DurationMs:  run.DurationMs,
				Diagnostics: run.Diagnostics,
			})
		}
	}
	return out
}

// Verdicts lists every recorded verdict ordered by sample then tool.
func (s *Snapshot) Verdicts() []Verdict {
	var out []Verdict
	for _, e := range s.Doc.Results {
		for _, tool := range sortedKeys(e.Verdicts) {
			v := e.Verdicts[tool]
			out = append(out, Verdict{
				BatchID:          s.Doc.Timestamp,
				SampleID:         e.Filename,
				Tool:             tool,
				Label:            v.Verdict,
				Rationale:        v.Rationale,
				Attempts:         v.Attempts,
				RequestID:        v.RequestID,
				PromptTokens:     v.PromptTokens,
				CompletionTokens: v.CompletionTokens,
			})
		}
	}
	return out
}

// Entry returns the entry for a sample, if any.
func (s *Snapshot) Entry(sampleID string) (Entry, bool) {
	for _, e := range s.Doc.Results {
		if e.Filename == sampleID {
			return e, true
		}
	}
	return Entry{}, false
}

// Stage reports how far a pair has progressed. AGGREGATED is never stored;
// it is assigned by the report.
func (s *Snapshot) Stage(sampleID, tool string) Stage {
	e, ok := s.Entry(sampleID)
	if !ok {
		return StagePending
	}
	if _, ok := e.Verdicts[tool]; ok {
		return StageJudged
	}
	if _, ok := e.Outputs[tool]; ok {
		return StageRunComplete
	}
	return StagePending
}

// Pair names one (sample, tool) combination.
type Pair struct {
	SampleID string `json:"sample"`
	Tool     string `json:"tool"`
}

// Pending lists registered pairs with no outcome yet. sampleIDs adds samples
// the document has not seen, e.g. files discovered on disk after an
// interrupted run.
func (s *Snapshot) Pending(sampleIDs []string) []Pair {
	ids := make(map[string]bool, len(s.Doc.Results)+len(sampleIDs))
	for _, e := range s.Doc.Results {
		ids[e.Filename] = true
	}
	for _, id := range sampleIDs {
		ids[id] = true
	}
	var out []Pair
	for _, id := range sortedKeys(ids) {
		for _, tool := range s.Doc.CheckersUsed {
			if s.Stage(id, tool) == StagePending {
				out = append(out, Pair{SampleID: id, Tool: tool})
			}
		}
	}
	return out
}

// Unjudged lists pairs with an outcome but no verdict.
func (s *Snapshot) Unjudged() []Pair {
	var out []Pair
	for _, o := range s.Outcomes() {
		if s.Stage(o.SampleID, o.Tool) == StageRunComplete {
			out = append(out, Pair{SampleID: o.SampleID, Tool: o.Tool})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
