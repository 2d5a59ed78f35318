package score

import (
	"github.com/signalnine/crosscheck/internal/pricing"
	"github.com/signalnine/crosscheck/internal/result"
)

// Row is one leaderboard line. Accuracy and the interval are nil when the
// tool has no verdicts.
type Row struct {
	Rank       int      `json:"rank"`
	Tool       string   `json:"tool"`
	Correct    int      `json:"correct"`
	Incorrect  int      `json:"incorrect"`
	Unknown    int      `json:"unknown"`
	Errors     int      `json:"errors"`
	Total      int      `json:"total"`
	Accuracy   *float64 `json:"accuracy"`
	WilsonLow  *float64 `json:"wilson_low"`
	WilsonHigh *float64 `json:"wilson_high"`
}

// Finding is one judged pair as shown in the report.
type Finding struct {
	SampleID  string        `json:"sample"`
	Tool      string        `json:"tool"`
	Status    result.Status `json:"status"`
	Label     result.Label  `json:"verdict"`
	Rationale string        `json:"rationale"`
}

type Usage struct {
	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Priced           bool    `json:"priced"`
}

// Report is everything the renderers need for one batch. Aggregated counts
// the verdicts that went into the leaderboard.
type Report struct {
	BatchID     string            `json:"batch"`
	Tools       []string          `json:"tools"`
	Versions    map[string]string `json:"versions,omitempty"`
	Leaderboard []Row             `json:"leaderboard"`
	Aggregated  int               `json:"aggregated"`
	Problems    []Finding         `json:"problems"`
	Details     []Finding         `json:"details"`
	Pending     []result.Pair     `json:"pending"`
	Unjudged    []result.Pair     `json:"unjudged"`
	Usage       Usage             `json:"usage"`
}

type BuildOpts struct {
	// SampleIDs are the samples on disk, used to report pairs that never ran.
	SampleIDs []string
	Pricing   *pricing.Table
	Model     string
}

// Build reduces a snapshot to a report. Problems lists every ERROR and
// UNKNOWN verdict.
func Build(snap *result.Snapshot, opts BuildOpts) *Report {
	verdicts := snap.Verdicts()
	r := &Report{
		BatchID:    snap.ID(),
		Tools:      snap.Doc.CheckersUsed,
		Versions:   snap.Doc.CheckerVersions,
		Aggregated: len(verdicts),
		Pending:    snap.Pending(opts.SampleIDs),
		Unjudged:   snap.Unjudged(),
		Usage:      Usage{Model: opts.Model},
	}

	for i, t := range Leaderboard(Aggregate(verdicts), snap.Doc.CheckersUsed) {
		row := Row{
			Rank:      i + 1,
			Tool:      t.Tool,
			Correct:   t.Correct,
			Incorrect: t.Incorrect,
			Unknown:   t.Unknown,
			Errors:    t.Errors,
			Total:     t.Total(),
		}
		if acc, ok := t.Accuracy(); ok {
			lo, hi, _ := t.Wilson(Z95)
			row.Accuracy, row.WilsonLow, row.WilsonHigh = &acc, &lo, &hi
		}
		r.Leaderboard = append(r.Leaderboard, row)
	}

	for _, v := range verdicts {
		e, _ := snap.Entry(v.SampleID)
		f := Finding{
			SampleID:  v.SampleID,
			Tool:      v.Tool,
			Status:    e.Runs[v.Tool].Status,
			Label:     v.Label,
			Rationale: v.Rationale,
		}
		r.Details = append(r.Details, f)
		if v.Label == result.LabelError || v.Label == result.LabelUnknown {
			r.Problems = append(r.Problems, f)
		}
		r.Usage.PromptTokens += v.PromptTokens
		r.Usage.CompletionTokens += v.CompletionTokens
	}

	if _, ok := opts.Pricing.Lookup(opts.Model); ok {
		r.Usage.Priced = true
		r.Usage.CostUSD = opts.Pricing.Cost(opts.Model, r.Usage.PromptTokens, r.Usage.CompletionTokens)
	}
	return r
}
