package result

// Status classifies one tool invocation.
type Status string

const (
	StatusSuccess     Status = "SUCCESS"
	StatusIssuesFound Status = "ISSUES_FOUND"
	StatusError       Status = "ERROR"
	StatusTimeout     Status = "TIMEOUT"
	StatusNotFound    Status = "NOT_FOUND"
)

// Label is the judge's classification of an outcome.
type Label string

const (
	LabelCorrect   Label = "CORRECT"
	LabelIncorrect Label = "INCORRECT"
	LabelUnknown   Label = "UNKNOWN"
	LabelError     Label = "ERROR"
)

// Outcome is the normalized record of one tool run on one sample.
type Outcome struct {
	BatchID     string
	SampleID    string
	Tool        string
	Output      string
	Status      Status
	ExitCode    int
	DurationMs  int64
	Diagnostics int
}

// Verdict is the judge's classification of one outcome.
type Verdict struct {
	BatchID          string
	SampleID         string
	Tool             string
	Label            Label
	Rationale        string
	Attempts         int
	RequestID        string
	PromptTokens     int
	CompletionTokens int
}

// Stage tracks a (sample, tool) pair through the pipeline.
type Stage int

const (
	StagePending Stage = iota
	StageRunComplete
	StageJudged
	StageAggregated
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "PENDING"
	case StageRunComplete:
		return "RUN_COMPLETE"
	case StageJudged:
		return "JUDGED"
	case StageAggregated:
		return "AGGREGATED"
	default:
		return "UNKNOWN"
	}
}

// Document is the persisted results.json of one batch.
type Document struct {
	Timestamp       string            `json:"timestamp"`
	CheckersUsed    []string          `json:"checkers_used"`
	CheckerVersions map[string]string `json:"checker_versions,omitempty"`
	Results         []Entry           `json:"results"`
}

type Entry struct {
	Filename string                 `json:"filename"`
	Filepath string                 `json:"filepath"`
	Outputs  map[string]string      `json:"outputs"`
	Runs     map[string]RunInfo     `json:"runs,omitempty"`
	Verdicts map[string]VerdictInfo `json:"verdicts,omitempty"`
}

type RunInfo struct {
	Status      Status `json:"status"`
	ExitCode    int    `json:"exit_code"`
	DurationMs  int64  `json:"duration_ms"`
	Diagnostics int    `json:"diagnostics"`
}

type VerdictInfo struct {
	Verdict          Label  `json:"verdict"`
	Rationale        string `json:"rationale"`
	Attempts         int    `json:"attempts"`
	RequestID        string `json:"request_id,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}
