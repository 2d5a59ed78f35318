package score

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/crosscheck/internal/result"
)

var Formats = []string{"table", "markdown", "json"}

// ReasonWidth is the longest rationale shown in text reports.
const ReasonWidth = 65

type RenderOpts struct {
	Format string
	// Decorate adds pass/fail glyphs; meant for terminals.
	Decorate bool
	// Details lists every verdict, not just the problems.
	Details bool
}

func Render(w io.Writer, r *Report, opts RenderOpts) error {
	switch opts.Format {
	case "", "table":
		return writeTable(w, r, opts)
	case "markdown":
		return writeMarkdown(w, r, opts)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", opts.Format, strings.Join(Formats, ", "))
	}
}

// Truncate shortens s to ReasonWidth runes on a single line.
func Truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= ReasonWidth {
		return s
	}
	return string(runes[:ReasonWidth-3]) + "..."
}

func percent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *p*100)
}

func interval(row Row) string {
	if row.WilsonLow == nil {
		return "n/a"
	}
	return fmt.Sprintf("[%.0f%%, %.0f%%]", *row.WilsonLow*100, *row.WilsonHigh*100)
}

func mark(l result.Label, decorate bool) string {
	if !decorate {
		return string(l)
	}
	switch l {
	case result.LabelCorrect:
		return "✅ PASS"
	case result.LabelIncorrect:
		return "❌ FAIL"
	default:
		return "⚠️ " + string(l)
	}
}

func writeTable(w io.Writer, r *Report, opts RenderOpts) error {
	fmt.Fprintf(w, "Batch %s: %d tools, %d verdicts aggregated\n\n", r.BatchID, len(r.Tools), r.Aggregated)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTOOL\tCORRECT\tINCORRECT\tUNKNOWN\tERRORS\tTOTAL\tACCURACY\t95% CI")
	fmt.Fprintln(tw, strings.Repeat("-", 90))
	for _, row := range r.Leaderboard {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			row.Rank, row.Tool, row.Correct, row.Incorrect, row.Unknown, row.Errors, row.Total, percent(row.Accuracy), interval(row))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Problems) > 0 {
		fmt.Fprintf(w, "\nERROR / UNKNOWN RESULTS (%d)\n", len(r.Problems))
		if err := writeFindings(w, r.Problems, opts.Decorate); err != nil {
			return err
		}
	}
	if opts.Details && len(r.Details) > 0 {
		fmt.Fprintf(w, "\nALL VERDICTS (%d)\n", len(r.Details))
		if err := writeFindings(w, r.Details, opts.Decorate); err != nil {
			return err
		}
	}
	writePairs(w, "NOT RUN", r.Pending)
	writePairs(w, "NOT JUDGED", r.Unjudged)
	writeUsage(w, r.Usage)
	return nil
}

func writeFindings(w io.Writer, fs []Finding, decorate bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tTOOL\tSTATUS\tVERDICT\tREASON")
	for _, f := range fs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.SampleID, f.Tool, f.Status, mark(f.Label, decorate), Truncate(f.Rationale))
	}
	return tw.Flush()
}

func writePairs(w io.Writer, title string, pairs []result.Pair) {
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(pairs))
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s / %s\n", p.SampleID, p.Tool)
	}
}

func writeUsage(w io.Writer, u Usage) {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return
	}
	fmt.Fprintf(w, "\nJudge usage: %d prompt + %d completion tokens", u.PromptTokens, u.CompletionTokens)
	if u.Priced {
		fmt.Fprintf(w, ", est. $%.4f (%s)", u.CostUSD, u.Model)
	}
	fmt.Fprintln(w)
}

func writeMarkdown(w io.Writer, r *Report, opts RenderOpts) error {
	fmt.Fprintf(w, "## Batch %s\n\n", r.BatchID)
	fmt.Fprintln(w, "| Rank | Tool | Correct | Incorrect | Unknown | Errors | Total | Accuracy | 95% CI |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|")
	for _, row := range r.Leaderboard {
		fmt.Fprintf(w, "| %d | %s | %d | %d | %d | %d | %d | %s | %s |\n",
			row.Rank, row.Tool, row.Correct, row.Incorrect, row.Unknown, row.Errors, row.Total, percent(row.Accuracy), interval(row))
	}

	findings := func(title string, fs []Finding) {
		fmt.Fprintf(w, "\n### %s\n\n", title)
		fmt.Fprintln(w, "| Sample | Tool | Status | Verdict | Reason |")
		fmt.Fprintln(w, "|---|---|---|---|---|")
		for _, f := range fs {
			reason := strings.ReplaceAll(Truncate(f.Rationale), "|", "\\|")
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", f.SampleID, f.Tool, f.Status, mark(f.Label, opts.Decorate), reason)
		}
	}
	if len(r.Problems) > 0 {
		findings("Error / unknown results", r.Problems)
	}
	if opts.Details && len(r.Details) > 0 {
		findings("All verdicts", r.Details)
	}

	pairs := func(title string, ps []result.Pair) {
		if len(ps) == 0 {
			return
		}
		fmt.Fprintf(w, "\n### %s\n\n", title)
		for _, p := range ps {
			fmt.Fprintf(w, "- `%s` / %s\n", p.SampleID, p.Tool)
		}
	}
	pairs("Not run", r.Pending)
	pairs("Not judged", r.Unjudged)

	writeUsage(w, r.Usage)
	return nil
}
