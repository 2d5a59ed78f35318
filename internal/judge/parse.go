package judge

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/signalnine/crosscheck/internal/result"
)

var (
	fenceRe     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	labelLineRe = regexp.MustCompile(`(?im)^[\s*_#>-]*(?:verdict|label|result)[*_\s]*[:=][*_\s]*([A-Za-z]+)`)
	reasonRe    = regexp.MustCompile(`(?ims)^[\s*_#>-]*(?:reason|rationale|explanation)[*_\s]*[:=][*_\s]*(.*)$`)
	anywhereRe  = regexp.MustCompile(`\b(INCORRECT|CORRECT|UNKNOWN)\b`)
)

const edgeChars = "*_#>\"'`[]()"

// ParseVerdict extracts a label and rationale from free-form judge text. It
// never fails: text with no recognizable label is UNKNOWN with the whole text
// as rationale.
func ParseVerdict(text string) (result.Label, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return result.LabelUnknown, ""
	}

	if l, why, ok := parseJSON(text); ok {
		return l, why
	}

	if m := labelLineRe.FindStringSubmatchIndex(text); m != nil {
		if l, ok := normalize(text[m[2]:m[3]]); ok {
			why := ""
			if r := reasonRe.FindStringSubmatch(text); r != nil {
				why = strings.TrimSpace(r[1])
			} else {
				why = strings.TrimSpace(text[:m[0]] + text[m[1]:])
			}
			return l, why
		}
	}

	if head, tail, ok := strings.Cut(text, "|"); ok {
		if l, ok := leadingLabel(head); ok {
			return l, strings.TrimSpace(tail)
		}
	}

	if l, rest, ok := leadingToken(text); ok {
		if rest == "" {
			rest = text
		}
		return l, rest
	}

	if m := anywhereRe.FindString(text); m != "" {
		return result.Label(m), text
	}
	return result.LabelUnknown, text
}

type jsonVerdict struct {
	Verdict     string `json:"verdict"`
	Label       string `json:"label"`
	Rationale   string `json:"rationale"`
	Reason      string `json:"reason"`
	Explanation string `json:"explanation"`
}

func parseJSON(text string) (result.Label, string, bool) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if !strings.HasPrefix(text, "{") {
		return "", "", false
	}
	var jv jsonVerdict
	if err := json.Unmarshal([]byte(text), &jv); err != nil {
		return "", "", false
	}
	raw := jv.Verdict
	if raw == "" {
		raw = jv.Label
	}
	l, ok := normalize(raw)
	if !ok {
		return "", "", false
	}
	for _, why := range []string{jv.Rationale, jv.Reason, jv.Explanation} {
		if why != "" {
			return l, strings.TrimSpace(why), true
		}
	}
	return l, "", true
}

func normalize(s string) (result.Label, bool) {
	s = strings.ToUpper(strings.Trim(strings.TrimSpace(s), edgeChars+".:,;!"))
	switch result.Label(s) {
	case result.LabelCorrect, result.LabelIncorrect, result.LabelUnknown:
		return result.Label(s), true
	}
	return "", false
}

func leadingLabel(s string) (result.Label, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", false
	}
	return normalize(fields[0])
}

// leadingToken accepts replies that open with the label, e.g.
// "**INCORRECT** - the overload overlap was missed".
func leadingToken(text string) (result.Label, string, bool) {
	trimmed := strings.TrimLeft(text, edgeChars+" ")
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	})
	if end < 0 {
		end = len(trimmed)
	}
	l, ok := normalize(trimmed[:end])
	if !ok {
		return "", "", false
	}
	rest := strings.TrimLeft(trimmed[end:], edgeChars+" .:,;!-–—\n\t")
	return l, strings.TrimSpace(rest), true
}
