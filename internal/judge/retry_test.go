package judge_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crosscheck/internal/judge"
)

func fastRetry(max int) judge.RetryConfig {
	return judge.RetryConfig{
		MaxAttempts:    max,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		BackoffFactor:  2,
		JitterFactor:   0.2,
	}
}

var errRateLimited = errors.New("status 429: rate limit exceeded")

func TestRetryTransientThenSuccess(t *testing.T) {
	for k := 0; k < 5; k++ {
		t.Run(fmt.Sprintf("%d failures", k), func(t *testing.T) {
			calls := 0
			res, err := judge.Retry(context.Background(), fastRetry(5), func(context.Context, int) error {
				calls++
				if calls <= k {
					return errRateLimited
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, k+1, res.Attempts)
			assert.Equal(t, k+1, calls)
		})
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	res, err := judge.Retry(context.Background(), fastRetry(4), func(context.Context, int) error {
		calls++
		return errRateLimited
	})
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 4, calls)
}

func TestRetryPermanentStopsImmediately(t *testing.T) {
	calls := 0
	res, err := judge.Retry(context.Background(), fastRetry(5), func(context.Context, int) error {
		calls++
		return errors.New("invalid api key")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(5)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res, err := judge.Retry(ctx, cfg, func(context.Context, int) error { return errRateLimited })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Attempts)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api 429", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, true},
		{"api 529", fmt.Errorf("wrapped: %w", &openai.APIError{HTTPStatusCode: 529}), true},
		{"request 503", &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("bad gateway")}, true},
		{"api 400", &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}, false},
		{"overloaded text", errors.New("model is overloaded, try later"), true},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED: quota"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"auth", errors.New("invalid api key"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, judge.IsTransient(tt.err))
		})
	}
}
