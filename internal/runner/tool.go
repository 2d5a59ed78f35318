package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/crosscheck/internal/config"
	"github.com/signalnine/crosscheck/internal/logging"
	"github.com/signalnine/crosscheck/internal/metrics"
	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/sample"
	"github.com/signalnine/crosscheck/internal/sandbox"
)

// DefaultDiagnosticPattern matches the diagnostic lines printed by the common
// Python type checkers ("x.py:3: error: ...", "error[invalid-return]: ...",
// "ERROR ..." and so on).
const DefaultDiagnosticPattern = `(?i)(:\s*(error|warning)\b|^\s*(error|warning)\b)`

const versionTimeout = 15 * time.Second

var defaultDiagnostic = regexp.MustCompile(DefaultDiagnosticPattern)

// ContainerFunc runs an image-backed tool.
type ContainerFunc func(ctx context.Context, opts *sandbox.RunOpts) (*sandbox.RunResult, error)

// Runner executes tools against samples. It never fails: every problem is
// folded into the returned outcome.
type Runner struct {
	Log       *logrus.Entry
	Metrics   *metrics.Metrics
	Container ContainerFunc
}

func New(log *logrus.Entry, m *metrics.Metrics) *Runner {
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{Log: log, Metrics: m, Container: sandbox.RunContainer}
}

type rawRun struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	err      error
	duration time.Duration
}

// Run invokes tool on s and normalizes what happened into an outcome.
func (r *Runner) Run(ctx context.Context, tool config.Tool, s sample.Sample) result.Outcome {
	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = config.DefaultToolTimeout
	}

	var raw rawRun
	if tool.Image != "" {
		raw = r.runContainer(ctx, tool, s, timeout)
	} else {
		raw = runLocal(ctx, tool, s.Path, timeout)
	}

	o := result.Outcome{
		SampleID:   s.ID,
		Tool:       tool.Name,
		ExitCode:   raw.exitCode,
		DurationMs: raw.duration.Milliseconds(),
	}
	text := combine(raw.stdout, raw.stderr)
	bin := tool.Command[0]

	switch {
	case raw.timedOut:
		o.Status = result.StatusTimeout
		o.Output = strings.TrimSpace(fmt.Sprintf("Error: Command '%s' timed out after %s\n%s", bin, timeout, text))
	case raw.err != nil && isNotFound(raw.err):
		o.Status = result.StatusNotFound
		o.Output = fmt.Sprintf("Error: Command '%s' not found in PATH.", bin)
	case raw.err != nil:
		o.Status = result.StatusError
		o.Output = fmt.Sprintf("Execution Error: %v", raw.err)
	default:
		o.Output = text
		o.Status, o.Diagnostics = Classify(tool, raw.exitCode, text)
	}
	return o
}

// Classify maps a completed run to a status. A clean exit code still counts
// as ISSUES_FOUND when the output carries diagnostics; any exit code outside
// both sets is a crash.
func Classify(tool config.Tool, exitCode int, output string) (result.Status, int) {
	n := countDiagnostics(pattern(tool), output)
	switch {
	case slices.Contains(tool.IssueExitCodes, exitCode):
		return result.StatusIssuesFound, n
	case slices.Contains(tool.CleanExitCodes, exitCode):
		if n > 0 {
			return result.StatusIssuesFound, n
		}
		return result.StatusSuccess, 0
	default:
		return result.StatusError, n
	}
}

func pattern(tool config.Tool) *regexp.Regexp {
	if re := tool.Diagnostic(); re != nil {
		return re
	}
	return defaultDiagnostic
}

func countDiagnostics(re *regexp.Regexp, output string) int {
	n := 0
	for _, line := range strings.Split(output, "\n") {
		if re.MatchString(line) {
			n++
		}
	}
	return n
}

func combine(stdout, stderr string) string {
	out := stdout
	if stderr != "" {
		out += "\n[STDERR]\n" + stderr
	}
	return strings.TrimSpace(out)
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) ||
		strings.Contains(err.Error(), "executable file not found")
}

func runLocal(ctx context.Context, tool config.Tool, path string, timeout time.Duration) rawRun {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(slices.Clone(tool.Command), path)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.WaitDelay = 2 * time.Second
	isolate(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	raw := rawRun{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		duration: time.Since(start),
	}
	if err == nil {
		return raw
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		raw.err = ctx.Err()
	case runCtx.Err() == context.DeadlineExceeded:
		raw.timedOut = true
		raw.exitCode = -1
	case errors.As(err, &exitErr):
		raw.exitCode = exitErr.ExitCode()
	default:
		raw.err = err
	}
	return raw
}

func (r *Runner) runContainer(ctx context.Context, tool config.Tool, s sample.Sample, timeout time.Duration) rawRun {
	command := append(slices.Clone(tool.Command), sandbox.MountPoint+"/"+filepath.Base(s.Path))
	res, err := r.Container(ctx, &sandbox.RunOpts{
		Image:     tool.Image,
		Command:   command,
		SampleDir: filepath.Dir(s.Path),
		Timeout:   timeout,
	})
	if err != nil {
		return rawRun{err: err}
	}
	return rawRun{
		stdout:   res.Output,
		exitCode: res.ExitCode,
		timedOut: res.TimedOut,
		duration: res.Duration,
	}
}

// Versions runs each tool's version command on the host. Tools without one,
// or whose command fails, are left out.
func (r *Runner) Versions(ctx context.Context, tools []config.Tool) map[string]string {
	versions := map[string]string{}
	for _, tool := range tools {
		if len(tool.VersionCommand) == 0 || tool.Image != "" {
			continue
		}
		vctx, cancel := context.WithTimeout(ctx, versionTimeout)
		out, err := exec.CommandContext(vctx, tool.VersionCommand[0], tool.VersionCommand[1:]...).Output()
		cancel()
		if err != nil {
			r.Log.WithField("tool", tool.Name).Debugf("version unavailable: %v", err)
			continue
		}
		versions[tool.Name] = strings.TrimSpace(string(out))
	}
	return versions
}
