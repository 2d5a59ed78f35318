package judge

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/signalnine/crosscheck/internal/config"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after every retry.
	BackoffFactor float64

	// JitterFactor is the maximum jitter as a fraction of the wait (0-1).
	JitterFactor float64
}

func RetryFromConfig(r config.Retry) RetryConfig {
	return RetryConfig{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
		BackoffFactor:  r.BackoffFactor,
		JitterFactor:   r.JitterFactor,
	}
}

// RetryResult contains the outcome of a retry operation.
type RetryResult struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

type RetryableFunc func(ctx context.Context, attempt int) error

// Retry calls fn until it succeeds, returns a permanent error, or
// MaxAttempts is reached. Only errors accepted by IsTransient are retried.
func Retry(ctx context.Context, cfg RetryConfig, fn RetryableFunc) (RetryResult, error) {
	start := time.Now()
	res := RetryResult{}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			res.LastError = err
			res.TotalDuration = time.Since(start)
			return res, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			res.LastError = nil
			res.TotalDuration = time.Since(start)
			return res, nil
		}
		res.LastError = err

		if !IsTransient(err) || attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			res.LastError = ctx.Err()
			res.TotalDuration = time.Since(start)
			return res, ctx.Err()
		case <-time.After(withJitter(backoff, cfg.JitterFactor)):
		}
		backoff = nextBackoff(backoff, cfg.BackoffFactor, cfg.MaxBackoff)
	}

	res.TotalDuration = time.Since(start)
	return res, res.LastError
}

// withJitter spreads base over [base*(1-j), base*(1+j)].
func withJitter(base time.Duration, j float64) time.Duration {
	if j <= 0 {
		return base
	}
	return time.Duration(float64(base) * (1 + (rand.Float64()*2-1)*j))
}

func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if max > 0 && next > max {
		return max
	}
	return next
}

var transientMarkers = []string{
	"429", "503", "529",
	"rate limit", "ratelimit", "rate_limit",
	"resource_exhausted", "resource exhausted",
	"overloaded", "too many requests", "unavailable",
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	return false
}

// IsTransient reports whether a judge call failure is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && transientStatus(apiErr.HTTPStatusCode) {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && transientStatus(reqErr.HTTPStatusCode) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
