package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/signalnine/crosscheck/internal/sample"
)

// TimestampFormat names batch directories; lexical order is chronological.
const TimestampFormat = "2006-01-02_15-04-05"

const (
	ResultsFile = "results.json"
	MetricsFile = "metrics.prom"
)

var (
	ErrNoBatches      = errors.New("no batches found")
	ErrMissingResults = errors.New("batch has no results")
)

// CreateBatch creates <baseDir>/<timestamp>/source_files and points
// <baseDir>/latest at it.
func CreateBatch(baseDir string, now time.Time) (string, error) {
	dir, err := filepath.Abs(filepath.Join(baseDir, now.Format(TimestampFormat)))
	if err != nil {
		return "", fmt.Errorf("resolving batch dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("creating results dir: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating batch dir: %w", err)
	}
	if err := os.Mkdir(filepath.Join(dir, sample.SourceDir), 0o755); err != nil {
		return "", fmt.Errorf("creating samples dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(dir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return dir, nil
}

// ListBatches returns batch directories under baseDir, oldest first. Only
// directories named with TimestampFormat count.
func ListBatches(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", baseDir, ErrNoBatches)
		}
		return nil, fmt.Errorf("reading %s: %w", baseDir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(TimestampFormat, e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	dirs := make([]string, len(names))
	for i, n := range names {
		dirs[i] = filepath.Join(baseDir, n)
	}
	return dirs, nil
}

// LatestBatchDir resolves the most recent batch by timestamp.
func LatestBatchDir(baseDir string) (string, error) {
	dirs, err := ListBatches(baseDir)
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("%s: %w", baseDir, ErrNoBatches)
	}
	return filepath.Abs(dirs[len(dirs)-1])
}

// BatchID is the timestamp part of a batch directory.
func BatchID(batchDir string) string {
	return filepath.Base(batchDir)
}

func writeDocument(batchDir string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	tmp, err := os.CreateTemp(batchDir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("creating temp results: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp results: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(batchDir, ResultsFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing results: %w", err)
	}
	return nil
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingResults)
		}
		return nil, fmt.Errorf("reading results: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing results %s: %w", path, err)
	}
	return &doc, nil
}
