package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/dreamloop/backend/domain"
)

const systemPrompt = `You are a task verification AI. Your job is to verify if the uploaded image/video shows genuine proof of task completion.

Analyze the image carefully and respond with a JSON object:
{
  "verified": true/false,
  "confidence": 0-100,
  "feedback": "Brief explanation of what you see and why you approved/rejected"
}

Be encouraging but honest. Look for signs of genuine effort. If the image is blurry, unclear, or unrelated to the task, set verified to false.`

// Config holds the settings for the outbound inference call.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client asks a vision-capable model whether a submitted proof demonstrates
// task completion. It is a pure decision producer: it never touches task or
// streak state, and every failure mode collapses to the fail-safe rejected
// verdict rather than an approval.
type Client struct {
	model   llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Client against an OpenAI-compatible inference endpoint.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create inference client: %w", err)
	}

	return NewWithModel(model, cfg.Timeout, logger), nil
}

// NewWithModel wires an existing model, used by tests to inject a stub.
func NewWithModel(model llms.Model, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Verify performs one bounded inference call and returns a verdict. The
// returned verdict is always usable: call failures, timeouts and malformed
// responses all yield the fail-safe rejection.
func (c *Client) Verify(ctx context.Context, taskTitle, proofURL string) (domain.Verdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf("Task: %q\n\nPlease verify if this image/video shows proof of completing this task.", taskTitle)),
				llms.ImageURLPart(proofURL),
			},
		},
	}

	resp, err := c.model.GenerateContent(callCtx, messages, llms.WithTemperature(0.2))
	if err != nil {
		c.logger.Warn("inference call failed, rejecting fail-safe",
			zap.String("task_title", taskTitle),
			zap.Error(err))
		return domain.RejectedVerdict(domain.FeedbackTransient), nil
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("inference response had no choices", zap.String("task_title", taskTitle))
		return domain.RejectedVerdict(domain.FeedbackUnparseable), nil
	}

	verdict, err := ParseVerdict(resp.Choices[0].Content)
	if err != nil {
		// Raw provider output stays in the logs; the user only ever sees
		// the generic fallback feedback.
		c.logger.Warn("unparseable inference response, rejecting fail-safe",
			zap.String("task_title", taskTitle),
			zap.String("raw_response", resp.Choices[0].Content),
			zap.Error(err))
	}
	return verdict, nil
}
