package result

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
)

var (
	ErrNoOutcome      = errors.New("no outcome recorded for pair")
	ErrToolSetChanged = errors.New("tool set differs from the batch's registered tools")
)

// Store is the single writer for one batch's results document. All methods
// are safe for concurrent use; every mutation is flushed before returning.
type Store struct {
	dir string

	mu  sync.Mutex
	doc *Document
}

// OpenStore loads <batchDir>/results.json, or starts an empty document.
func OpenStore(batchDir string) (*Store, error) {
	dir, err := filepath.Abs(batchDir)
	if err != nil {
		return nil, fmt.Errorf("resolving batch dir: %w", err)
	}
	doc, err := readDocument(filepath.Join(dir, ResultsFile))
	if errors.Is(err, ErrMissingResults) {
		doc = &Document{Timestamp: BatchID(dir), CheckersUsed: []string{}, Results: []Entry{}}
	} else if err != nil {
		return nil, err
	}
	return &Store{dir: dir, doc: doc}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) ID() string { return s.doc.Timestamp }

// SetTools registers the batch's tool set. It is fixed once recorded.
func (s *Store) SetTools(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.doc.CheckersUsed) > 0 {
		if !slices.Equal(s.doc.CheckersUsed, names) {
			return fmt.Errorf("batch %s uses %v, got %v: %w", s.doc.Timestamp, s.doc.CheckersUsed, names, ErrToolSetChanged)
		}
		return nil
	}
	s.doc.CheckersUsed = slices.Clone(names)
	return writeDocument(s.dir, s.doc)
}

func (s *Store) SetVersions(versions map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.CheckerVersions = versions
	return writeDocument(s.dir, s.doc)
}

// RecordOutcome upserts the outcome for (sample, tool). A changed output
// invalidates the pair's verdict.
func (s *Store) RecordOutcome(o Outcome, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(o.SampleID, path)
	if prev, ok := e.Outputs[o.Tool]; ok && prev != o.Output {
		delete(e.Verdicts, o.Tool)
	}
	e.Outputs[o.Tool] = o.Output
	if e.Runs == nil {
		e.Runs = map[string]RunInfo{}
	}
	e.Runs[o.Tool] = RunInfo{
		Status:      o.Status,
		ExitCode:    o.ExitCode,
		DurationMs:  o.DurationMs,
		Diagnostics: o.Diagnostics,
	}
	return writeDocument(s.dir, s.doc)
}

// RecordVerdict upserts the verdict for (sample, tool). The pair must already
// have an outcome.
func (s *Store) RecordVerdict(v Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.find(v.SampleID)
	if e == nil {
		return fmt.Errorf("%s/%s: %w", v.SampleID, v.Tool, ErrNoOutcome)
	}
	if _, ok := e.Outputs[v.Tool]; !ok {
		return fmt.Errorf("%s/%s: %w", v.SampleID, v.Tool, ErrNoOutcome)
	}
	if e.Verdicts == nil {
		e.Verdicts = map[string]VerdictInfo{}
	}
	e.Verdicts[v.Tool] = VerdictInfo{
		Verdict:          v.Label,
		Rationale:        v.Rationale,
		Attempts:         v.Attempts,
		RequestID:        v.RequestID,
		PromptTokens:     v.PromptTokens,
		CompletionTokens: v.CompletionTokens,
	}
	return writeDocument(s.dir, s.doc)
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Snapshot{Dir: s.dir, Doc: cloneDocument(s.doc)}
}

func (s *Store) find(sampleID string) *Entry {
	for i := range s.doc.Results {
		if s.doc.Results[i].Filename == sampleID {
			return &s.doc.Results[i]
		}
	}
	return nil
}

func (s *Store) entry(sampleID, path string) *Entry {
	if e := s.find(sampleID); e != nil {
		if path != "" {
			e.Filepath = path
		}
		if e.Outputs == nil {
			e.Outputs = map[string]string{}
		}
		return e
	}
	s.doc.Results = append(s.doc.Results, Entry{
		Filename: sampleID,
		Filepath: path,
		Outputs:  map[string]string{},
	})
	return &s.doc.Results[len(s.doc.Results)-1]
}

func cloneDocument(d *Document) *Document {
	out := &Document{
		Timestamp:    d.Timestamp,
		CheckersUsed: slices.Clone(d.CheckersUsed),
		Results:      make([]Entry, len(d.Results)),
	}
	if d.CheckerVersions != nil {
		out.CheckerVersions = make(map[string]string, len(d.CheckerVersions))
		for k, v := range d.CheckerVersions {
			out.CheckerVersions[k] = v
		}
	}
	for i, e := range d.Results {
		c := Entry{Filename: e.Filename, Filepath: e.Filepath, Outputs: make(map[string]string, len(e.Outputs))}
		for k, v := range e.Outputs {
			c.Outputs[k] = v
		}
		if e.Runs != nil {
			c.Runs = make(map[string]RunInfo, len(e.Runs))
			for k, v := range e.Runs {
				c.Runs[k] = v
			}
		}
		if e.Verdicts != nil {
			c.Verdicts = make(map[string]VerdictInfo, len(e.Verdicts))
			for k, v := range e.Verdicts {
				c.Verdicts[k] = v
			}
		}
		out.Results[i] = c
	}
	return out
}
