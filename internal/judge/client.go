package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/signalnine/crosscheck/internal/config"
	"github.com/signalnine/crosscheck/internal/logging"
	"github.com/signalnine/crosscheck/internal/metrics"
	"github.com/signalnine/crosscheck/internal/result"
)

var errNoChoices = errors.New("judge returned no choices")

// Completer is the slice of the OpenAI client the judge needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Log     *logrus.Entry
	Metrics *metrics.Metrics
	// API replaces the HTTP client, mostly for tests.
	API Completer
}

// Client classifies outcomes with an OpenAI-compatible chat model. Its
// concurrency and request-rate caps are shared by every caller.
type Client struct {
	api        Completer
	model      string
	rubric     string
	structured bool
	timeout    time.Duration
	retry      RetryConfig

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	log     *logrus.Entry
	metrics *metrics.Metrics
}

func New(cfg config.Judge, apiKey string, opts Options) (*Client, error) {
	rubric, err := cfg.RubricText()
	if err != nil {
		return nil, err
	}
	api := opts.API
	if api == nil {
		if apiKey == "" {
			return nil, fmt.Errorf("judge API key is empty (set %s)", cfg.APIKeyEnv)
		}
		oc := openai.DefaultConfig(apiKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		api = openai.NewClientWithConfig(oc)
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}

	c := &Client{
		api:        api,
		model:      cfg.Model,
		rubric:     rubric,
		structured: cfg.StructuredOutput,
		timeout:    cfg.Timeout,
		retry:      RetryFromConfig(cfg.Retry),
		sem:        semaphore.NewWeighted(int64(max(cfg.MaxConcurrency, 1))),
		log:        opts.Log,
		metrics:    opts.Metrics,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

// Judge never returns an error: exhausted retries and permanent failures
// become ERROR verdicts carrying the last error.
func (c *Client) Judge(ctx context.Context, req Request) result.Verdict {
	v := result.Verdict{
		BatchID:   req.Outcome.BatchID,
		SampleID:  req.Outcome.SampleID,
		Tool:      req.Outcome.Tool,
		RequestID: uuid.NewString(),
	}
	log := c.log.WithFields(logrus.Fields{"sample": v.SampleID, "tool": v.Tool, "request_id": v.RequestID})

	system, user := BuildPrompt(c.rubric, c.structured, req)
	chat := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if c.structured {
		chat.ResponseFormat = verdictFormat()
	}

	var resp openai.ChatCompletionResponse
	res, err := Retry(ctx, c.retry, func(ctx context.Context, attempt int) error {
		r, err := c.call(ctx, v.Tool, chat)
		if err != nil {
			log.WithField("attempt", attempt).Debugf("judge call failed: %v", err)
			return err
		}
		resp = r
		return nil
	})
	v.Attempts = res.Attempts
	if err != nil {
		v.Label = result.LabelError
		v.Rationale = err.Error()
		log.WithField("attempts", res.Attempts).Warnf("judge gave up: %v", err)
		return v
	}

	v.Label, v.Rationale = ParseVerdict(resp.Choices[0].Message.Content)
	v.PromptTokens = resp.Usage.PromptTokens
	v.CompletionTokens = resp.Usage.CompletionTokens
	return v
}

func (c *Client) call(ctx context.Context, tool string, chat openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	defer c.sem.Release(1)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, err
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, chat)
	if err == nil && len(resp.Choices) == 0 {
		err = errNoChoices
	}
	switch {
	case err == nil:
		c.metrics.ObserveAttempt(tool, metrics.AttemptOK, time.Since(start))
	case IsTransient(err):
		c.metrics.ObserveAttempt(tool, metrics.AttemptTransient, time.Since(start))
	default:
		c.metrics.ObserveAttempt(tool, metrics.AttemptPermanent, time.Since(start))
	}
	return resp, err
}

func verdictFormat() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name: "verdict",
			Schema: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"verdict": {
						Type: jsonschema.String,
						Enum: []string{string(result.LabelCorrect), string(result.LabelIncorrect), string(result.LabelUnknown)},
					},
					"rationale": {Type: jsonschema.String},
				},
				Required:             []string{"verdict", "rationale"},
				AdditionalProperties: false,
			},
			Strict: true,
		},
	}
}
