package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Tools   []Tool  `yaml:"tools" validate:"required,min=1,dive"`
	Samples Samples `yaml:"samples"`
	Run     Run     `yaml:"run"`
	Judge   Judge   `yaml:"judge"`
	Secrets Secrets `yaml:"secrets"`
	Results Results `yaml:"results"`
}

// Tool describes one external analysis tool. The sample path is appended to
// Command on every invocation.
type Tool struct {
	Name              string        `yaml:"name" validate:"required"`
	Command           []string      `yaml:"command" validate:"required,min=1"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	CleanExitCodes    []int         `yaml:"clean_exit_codes"`
	IssueExitCodes    []int         `yaml:"issue_exit_codes"`
	DiagnosticPattern string        `yaml:"diagnostic_pattern"`
	Image             string        `yaml:"image"`
	VersionCommand    []string      `yaml:"version_command"`

	diagnostic *regexp.Regexp
}

type Samples struct {
	Glob string `yaml:"glob"`
}

type Run struct {
	Parallel int           `yaml:"parallel" validate:"gte=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

type Judge struct {
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Rubric            string        `yaml:"rubric"`
	RubricFile        string        `yaml:"rubric_file"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	Parallel          int           `yaml:"parallel" validate:"gte=0"`
	MaxConcurrency    int           `yaml:"max_concurrency" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	StructuredOutput  bool          `yaml:"structured_output"`
	Retry             Retry         `yaml:"retry"`
}

// Retry holds the judge backoff policy. Zero fields take the defaults below.
type Retry struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"gte=0"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" validate:"gte=0"`
	BackoffFactor  float64       `yaml:"backoff_factor" validate:"gte=0"`
	JitterFactor   float64       `yaml:"jitter_factor" validate:"gte=0,lte=1"`
}

type Secrets struct {
	EnvFile string `yaml:"env_file"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

const (
	DefaultSamplesGlob       = "*.py"
	DefaultResultsDir        = "generated_examples"
	DefaultToolTimeout       = 60 * time.Second
	DefaultJudgeBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultJudgeModel        = "gemini-2.5-pro"
	DefaultJudgeAPIKeyEnv    = "GEMINI_API_KEY"
	DefaultJudgeTimeout      = 120 * time.Second
	DefaultJudgeParallel     = 4
	DefaultJudgeConcurrency  = 4
	DefaultRetryMaxAttempts  = 5
	DefaultRetryInitial      = 2 * time.Second
	DefaultRetryMaxBackoff   = 60 * time.Second
	DefaultRetryFactor       = 2.0
	DefaultRetryJitterFactor = 0.2
)

// DefaultTools is the checker set used when no config file is present.
func DefaultTools() []Tool {
	return []Tool{
		{Name: "mypy", Command: []string{"mypy"}, VersionCommand: []string{"mypy", "--version"}},
		{Name: "pyrefly", Command: []string{"pyrefly", "check"}, VersionCommand: []string{"pyrefly", "--version"}},
		{Name: "zuban", Command: []string{"zuban", "check"}, VersionCommand: []string{"zuban", "--version"}},
		{Name: "ty", Command: []string{"ty", "check"}, VersionCommand: []string{"ty", "--version"}},
	}
}

// Default returns a fully defaulted config.
func Default() *Config {
	cfg := &Config{Tools: DefaultTools()}
	if err := validate(cfg); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist and the caller did not ask for it explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

var structValidator = validator.New()

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfg.Tools))
	for i := range cfg.Tools {
		t := &cfg.Tools[i]
		if seen[t.Name] {
			return fmt.Errorf("tool %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if t.DiagnosticPattern != "" {
			re, err := regexp.Compile(t.DiagnosticPattern)
			if err != nil {
				return fmt.Errorf("tool %q: diagnostic_pattern: %w", t.Name, err)
			}
			t.diagnostic = re
		}
		if len(t.CleanExitCodes) == 0 {
			t.CleanExitCodes = []int{0}
		}
		if len(t.IssueExitCodes) == 0 {
			t.IssueExitCodes = []int{1}
		}
		for _, c := range t.CleanExitCodes {
			for _, ic := range t.IssueExitCodes {
				if c == ic {
					return fmt.Errorf("tool %q: exit code %d is both clean and issue", t.Name, c)
				}
			}
		}
	}

	if cfg.Samples.Glob == "" {
		cfg.Samples.Glob = DefaultSamplesGlob
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = DefaultResultsDir
	}
	if cfg.Run.Parallel == 0 {
		cfg.Run.Parallel = 1
	}
	if cfg.Run.Timeout == 0 {
		cfg.Run.Timeout = DefaultToolTimeout
	}
	for i := range cfg.Tools {
		if cfg.Tools[i].Timeout == 0 {
			cfg.Tools[i].Timeout = cfg.Run.Timeout
		}
	}

	j := &cfg.Judge
	if j.BaseURL == "" {
		j.BaseURL = DefaultJudgeBaseURL
	}
	if j.Model == "" {
		j.Model = DefaultJudgeModel
	}
	if j.APIKeyEnv == "" {
		j.APIKeyEnv = DefaultJudgeAPIKeyEnv
	}
	if j.Timeout == 0 {
		j.Timeout = DefaultJudgeTimeout
	}
	if j.Parallel == 0 {
		j.Parallel = DefaultJudgeParallel
	}
	if j.MaxConcurrency == 0 {
		j.MaxConcurrency = DefaultJudgeConcurrency
	}
	if j.Rubric != "" && j.RubricFile != "" {
		return fmt.Errorf("judge: rubric and rubric_file are mutually exclusive")
	}

	r := &j.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultRetryMaxAttempts
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = DefaultRetryInitial
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = DefaultRetryMaxBackoff
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = DefaultRetryFactor
	}
	if r.JitterFactor == 0 {
		r.JitterFactor = DefaultRetryJitterFactor
	}
	if r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("judge.retry: max_backoff %s is less than initial_backoff %s", r.MaxBackoff, r.InitialBackoff)
	}
	if r.BackoffFactor < 1 {
		return fmt.Errorf("judge.retry: backoff_factor must be at least 1")
	}
	return nil
}

// ToolNames returns the registered tool names in config order.
func (c *Config) ToolNames() []string {
	names := make([]string, len(c.Tools))
	for i, t := range c.Tools {
		names[i] = t.Name
	}
	return names
}

// Diagnostic returns the compiled diagnostic_pattern, or nil when none is set
// or it does not compile. Tools that went through Load carry the pattern
// compiled once; hand-built tools compile it on each call.
func (t Tool) Diagnostic() *regexp.Regexp {
	if t.diagnostic != nil || t.DiagnosticPattern == "" {
		return t.diagnostic
	}
	re, err := regexp.Compile(t.DiagnosticPattern)
	if err != nil {
		return nil
	}
	return re
}

// RubricText resolves the configured rubric. An empty string means the
// judge's built-in rubric.
func (j Judge) RubricText() (string, error) {
	if j.RubricFile == "" {
		return j.Rubric, nil
	}
	data, err := os.ReadFile(j.RubricFile)
	if err != nil {
		return "", fmt.Errorf("reading rubric %s: %w", j.RubricFile, err)
	}
	return string(data), nil
}
