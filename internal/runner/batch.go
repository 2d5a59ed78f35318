package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/crosscheck/internal/config"
	"github.com/signalnine/crosscheck/internal/judge"
	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/sample"
)

type RunOpts struct {
	Store    *result.Store
	Tools    []config.Tool
	Samples  []sample.Sample
	Parallel int
}

type RunSummary struct {
	Recorded int
	ByStatus map[result.Status]int
}

// RunBatch runs every tool over every sample and records each outcome as soon
// as it is known. Tool failures become outcomes; only store failures and
// cancellation stop the batch.
func (r *Runner) RunBatch(ctx context.Context, opts RunOpts) (*RunSummary, error) {
	names := make([]string, len(opts.Tools))
	for i, t := range opts.Tools {
		names[i] = t.Name
	}
	if err := opts.Store.SetTools(names); err != nil {
		return nil, err
	}
	if v := r.Versions(ctx, opts.Tools); len(v) > 0 {
		if err := opts.Store.SetVersions(v); err != nil {
			return nil, err
		}
	}

	total := len(opts.Samples) * len(opts.Tools)
	var done atomic.Int32
	counts := make([]atomic.Int32, len(statusOrder))

	jobs := make([]Job, 0, total)
	for _, s := range opts.Samples {
		for _, tool := range opts.Tools {
			jobs = append(jobs, func(ctx context.Context) error {
				o := r.Run(ctx, tool, s)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.BatchID = opts.Store.ID()
				if err := opts.Store.RecordOutcome(o, s.Path); err != nil {
					return fmt.Errorf("recording %s/%s: %w", s.ID, tool.Name, err)
				}
				r.Metrics.ObserveRun(o)
				counts[statusIndex(o.Status)].Add(1)
				n := done.Add(1)
				r.Log.WithFields(logrus.Fields{
					"sample":   s.ID,
					"tool":     tool.Name,
					"status":   o.Status,
					"duration": o.DurationMs,
				}).Infof("[%d/%d] checked", n, total)
				return nil
			})
		}
	}

	err := RunPool(ctx, opts.Parallel, jobs)
	sum := &RunSummary{Recorded: int(done.Load()), ByStatus: map[result.Status]int{}}
	for i, st := range statusOrder {
		if c := counts[i].Load(); c > 0 {
			sum.ByStatus[st] = int(c)
		}
	}
	return sum, err
}

var statusOrder = []result.Status{
	result.StatusSuccess,
	result.StatusIssuesFound,
	result.StatusError,
	result.StatusTimeout,
	result.StatusNotFound,
}

func statusIndex(s result.Status) int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return 2
}

// Judger classifies one outcome. Implementations report failures as ERROR
// verdicts rather than errors.
type Judger interface {
	Judge(ctx context.Context, req judge.Request) result.Verdict
}

type JudgeOpts struct {
	Store    *result.Store
	Judge    Judger
	Parallel int
	// Force re-judges pairs that already carry a verdict.
	Force bool
	// SampleIDs lists the samples on disk, so samples that never got an
	// outcome still show up as pending.
	SampleIDs []string
}

type JudgeSummary struct {
	Judged  int
	Skipped int
	ByLabel map[result.Label]int
	// Pending lists registered pairs that still have no outcome.
	Pending []result.Pair
}

// JudgeBatch sends every recorded outcome that lacks a usable verdict to the
// judge and records verdicts as they arrive. Pairs with an ERROR verdict are
// always retried.
func (r *Runner) JudgeBatch(ctx context.Context, opts JudgeOpts) (*JudgeSummary, error) {
	snap := opts.Store.Snapshot()
	sum := &JudgeSummary{
		ByLabel: map[result.Label]int{},
		Pending: snap.Pending(opts.SampleIDs),
	}

	sources := map[string]sampleSource{}
	var todo []result.Outcome
	for _, o := range snap.Outcomes() {
		e, _ := snap.Entry(o.SampleID)
		if v, ok := e.Verdicts[o.Tool]; ok && v.Verdict != result.LabelError && !opts.Force {
			sum.Skipped++
			continue
		}
		if _, ok := sources[o.SampleID]; !ok {
			s, err := readSample(opts.Store.Dir(), e)
			sources[o.SampleID] = sampleSource{sample: s, err: err}
		}
		todo = append(todo, o)
	}

	var done atomic.Int32
	labels := make([]atomic.Int32, len(labelOrder))
	jobs := make([]Job, 0, len(todo))
	for _, o := range todo {
		src := sources[o.SampleID]
		jobs = append(jobs, func(ctx context.Context) error {
			var v result.Verdict
			if src.err != nil {
				v = result.Verdict{
					SampleID:  o.SampleID,
					Tool:      o.Tool,
					Label:     result.LabelError,
					Rationale: fmt.Sprintf("sample source unavailable: %v", src.err),
				}
			} else {
				v = opts.Judge.Judge(ctx, judge.Request{Sample: src.sample, Outcome: o})
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v.BatchID = opts.Store.ID()
			if err := opts.Store.RecordVerdict(v); err != nil {
				return fmt.Errorf("recording verdict %s/%s: %w", o.SampleID, o.Tool, err)
			}
			r.Metrics.ObserveVerdict(v)
			labels[labelIndex(v.Label)].Add(1)
			n := done.Add(1)
			r.Log.WithFields(logrus.Fields{
				"sample":   o.SampleID,
				"tool":     o.Tool,
				"verdict":  v.Label,
				"attempts": v.Attempts,
			}).Infof("[%d/%d] judged", n, len(todo))
			return nil
		})
	}

	err := RunPool(ctx, opts.Parallel, jobs)
	sum.Judged = int(done.Load())
	for i, l := range labelOrder {
		if c := labels[i].Load(); c > 0 {
			sum.ByLabel[l] = int(c)
		}
	}
	return sum, err
}

type sampleSource struct {
	sample sample.Sample
	err    error
}

var labelOrder = []result.Label{
	result.LabelCorrect,
	result.LabelIncorrect,
	result.LabelUnknown,
	result.LabelError,
}

func labelIndex(l result.Label) int {
	for i, x := range labelOrder {
		if x == l {
			return i
		}
	}
	return len(labelOrder) - 1
}

// readSample loads the source behind e, falling back to the batch's own
// source_files copy when the recorded filepath does not resolve (documents
// written from another working directory hold relative paths).
func readSample(batchDir string, e result.Entry) (sample.Sample, error) {
	s, err := sample.Read(e.Filepath)
	if err == nil {
		return s, nil
	}
	if local, lerr := sample.Read(filepath.Join(batchDir, sample.SourceDir, e.Filename)); lerr == nil {
		return local, nil
	}
	return s, err
}
