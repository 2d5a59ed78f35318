package score

import (
	"math"
	"sort"

	"github.com/signalnine/crosscheck/internal/result"
)

// Z95 is the normal quantile for a two-sided 95% interval.
const Z95 = 1.959964

// Tally counts one tool's verdicts. ERROR and UNKNOWN verdicts count toward
// the total but never as correct.
type Tally struct {
	Tool      string `json:"tool"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	Unknown   int    `json:"unknown"`
	Errors    int    `json:"errors"`
}

func (t Tally) Total() int {
	return t.Correct + t.Incorrect + t.Unknown + t.Errors
}

// Accuracy is Correct/Total. ok is false when the tool has no verdicts.
func (t Tally) Accuracy() (float64, bool) {
	n := t.Total()
	if n == 0 {
		return 0, false
	}
	return float64(t.Correct) / float64(n), true
}

// Wilson returns the Wilson score interval for the accuracy at quantile z.
func (t Tally) Wilson(z float64) (lo, hi float64, ok bool) {
	p, ok := t.Accuracy()
	if !ok {
		return 0, 0, false
	}
	n := float64(t.Total())
	z2 := z * z
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom
	return math.Max(0, center-margin), math.Min(1, center+margin), true
}

// Aggregate folds verdicts into per-tool tallies.
func Aggregate(verdicts []result.Verdict) map[string]Tally {
	out := map[string]Tally{}
	for _, v := range verdicts {
		t := out[v.Tool]
		t.Tool = v.Tool
		switch v.Label {
		case result.LabelCorrect:
			t.Correct++
		case result.LabelIncorrect:
			t.Incorrect++
		case result.LabelUnknown:
			t.Unknown++
		default:
			t.Errors++
		}
		out[v.Tool] = t
	}
	return out
}

// Leaderboard ranks tallies by accuracy, highest first. Tools with undefined
// accuracy go last; ties fall back to the correct count, then the name.
// Registered tools without verdicts are included with an empty tally.
func Leaderboard(tallies map[string]Tally, tools []string) []Tally {
	merged := make(map[string]Tally, len(tallies)+len(tools))
	for _, name := range tools {
		merged[name] = Tally{Tool: name}
	}
	for name, t := range tallies {
		t.Tool = name
		merged[name] = t
	}

	board := make([]Tally, 0, len(merged))
	for _, t := range merged {
		board = append(board, t)
	}
	sort.Slice(board, func(i, j int) bool {
		a, aok := board[i].Accuracy()
		b, bok := board[j].Accuracy()
		if aok != bok {
			return aok
		}
		if aok && a != b {
			return a > b
		}
		if board[i].Correct != board[j].Correct {
			return board[i].Correct > board[j].Correct
		}
		return board[i].Tool < board[j].Tool
	})
	return board
}
