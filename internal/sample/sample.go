package sample

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SourceDir is the batch subdirectory holding sample files.
const SourceDir = "source_files"

var ErrNoSamples = errors.New("no samples found")

// Sample is one candidate source file. ID is the file name, which is also the
// key used in the results document.
type Sample struct {
	ID     string
	Path   string
	Source string
}

// Discover reads every file in <batchDir>/source_files matching glob, ordered
// by name.
func Discover(batchDir, glob string) ([]Sample, error) {
	dir := filepath.Join(batchDir, SourceDir)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("no %s directory in %s: %w", SourceDir, batchDir, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", glob, err)
	}
	sort.Strings(paths)

	var samples []Sample
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		s, err := Read(p)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s matching %q: %w", dir, glob, ErrNoSamples)
	}
	return samples, nil
}

func Read(path string) (Sample, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Sample{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Sample{}, fmt.Errorf("reading sample: %w", err)
	}
	return Sample{ID: filepath.Base(abs), Path: abs, Source: string(data)}, nil
}
