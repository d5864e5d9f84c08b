package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = 60 * time.Second

	instrumentationName = "github.com/zarkopopovski/v2v-chat/llm"
)

// ErrNotConfigured is returned by Complete when no API token was supplied.
var ErrNotConfigured = errors.New("llm: OpenAI API key not configured on server")

// UpstreamError wraps any failure reported by the completion provider.
// Its message is the provider's message, unchanged.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	if e == nil || e.Err == nil {
		return "llm: upstream error"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type Options struct {
	Token   string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client sends single-turn prompts to an OpenAI-compatible chat endpoint.
type Client struct {
	llm      llms.Model
	model    string
	timeout  time.Duration
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

func NewClient(opts Options) (*Client, error) {
	c := &Client{
		model:   strings.TrimSpace(opts.Model),
		timeout: opts.Timeout,
		tracer:  otel.Tracer(instrumentationName),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	histogram, err := otel.Meter(instrumentationName).Float64Histogram(
		"llm.request.duration",
		metric.WithDescription("Duration of completion requests"),
		metric.WithUnit("s"),
	)
	if err == nil {
		c.duration = histogram
	}

	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return c, nil
	}

	openAIOptions := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(c.model),
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		openAIOptions = append(openAIOptions, openai.WithBaseURL(baseURL))
	}

	model, err := openai.New(openAIOptions...)
	if err != nil {
		return nil, err
	}
	c.llm = model

	return c, nil
}

func (c *Client) Configured() bool {
	return c != nil && c.llm != nil
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends userText as the only message of a new conversation and
// returns the assistant reply.
func (c *Client) Complete(ctx context.Context, userText string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, span := c.tracer.Start(ctx, "openai_api_call",
		trace.WithAttributes(
			attribute.String("llm.model", c.model),
			attribute.Int("llm.prompt_length", len(userText)),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	reply, err := c.generate(ctx, userText)
	if c.duration != nil {
		c.duration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("llm.model", c.model),
				attribute.Bool("error", err != nil),
			),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &UpstreamError{Err: err}
	}

	span.SetAttributes(attribute.Int("llm.response_length", len(reply)))
	return reply, nil
}

func (c *Client) generate(ctx context.Context, userText string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, userText),
	}

	output, err := c.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	if output == nil || len(output.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}

	return strings.TrimSpace(output.Choices[0].Content), nil
}
