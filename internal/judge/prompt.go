package judge

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/sample"
)

// DefaultRubric is the system prompt used when no rubric is configured.
const DefaultRubric = `You are an expert Python Type System Judge (PEP 484 and the typing specification).
Your goal is to determine whether a specific type checker behaved correctly on a piece of source code.

PROTOCOL:
1. ANALYZE THE CODE: decide whether it contains a type error that a sound checker must report.
   Pay attention to subtle cases such as overlapping @overload signatures (Literal['x'] overlaps str),
   variance of generic parameters, Protocol compatibility and ParamSpec propagation.
2. JUDGE THE TOOL:
   - If the code is unsafe, the tool MUST report an error to be CORRECT.
   - If the code is unsafe and the tool reports success (or 0 errors), it is INCORRECT.
   - If the code is safe, reporting success is CORRECT and reporting an error is INCORRECT.
   - If you cannot decide from the code and the output, answer UNKNOWN.

OUTPUT FORMAT:
Start your response with exactly CORRECT, INCORRECT or UNKNOWN, followed by a vertical bar '|',
and then a short explanation.
Example: CORRECT | mypy correctly flagged the unsafe overload overlap.`

const structuredSuffix = `

Reply with a JSON object {"verdict": "CORRECT" | "INCORRECT" | "UNKNOWN", "rationale": "<short explanation>"}.`

// EmptyOutput stands in for a tool that printed nothing.
const EmptyOutput = "Success (No Output)"

// Request is one outcome to classify, with the sample it was produced from.
type Request struct {
	Sample  sample.Sample
	Outcome result.Outcome
}

var fenceLang = map[string]string{
	".py":  "python",
	".pyi": "python",
}

// BuildPrompt returns the system and user messages for req. The source is
// always stripped of comments before it is shown to the judge.
func BuildPrompt(rubric string, structured bool, req Request) (string, string) {
	if strings.TrimSpace(rubric) == "" {
		rubric = DefaultRubric
	}
	if structured {
		rubric += structuredSuffix
	}

	output := req.Outcome.Output
	if strings.TrimSpace(output) == "" {
		output = EmptyOutput
	}
	lang := fenceLang[strings.ToLower(filepath.Ext(req.Sample.ID))]

	var b strings.Builder
	fmt.Fprintf(&b, "### Source Code (No Comments):\n```%s\n%s\n```\n\n", lang, sample.StripComments(req.Sample.Source))
	fmt.Fprintf(&b, "### Tool Name: %s\n", req.Outcome.Tool)
	fmt.Fprintf(&b, "### Tool Output:\n%s\n\n", output)
	b.WriteString("### Task:\nDoes the tool output correctly reflect the safety of the code?")
	return rubric, b.String()
}
