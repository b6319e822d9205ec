package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/codebro/backend/internal/logger"
)

// Responder produces the assistant's reply to a single user message.
type Responder interface {
	Respond(ctx context.Context, message string) (*Reply, error)
}

type Reply struct {
	Text       string
	TokensUsed int
	Model      string
}

// ── EchoResponder (placeholder) ────────────────────────────

const placeholderModel = "placeholder-model"

type EchoResponder struct{}

func NewEchoResponder() *EchoResponder {
	return &EchoResponder{}
}

func (EchoResponder) Respond(_ context.Context, message string) (*Reply, error) {
	text := fmt.Sprintf("I received your message: %q. This is a placeholder response; "+
		"configure ANTHROPIC_API_KEY to enable the coding assistant.", message)
	return &Reply{
		Text:       text,
		TokensUsed: len(message) + len(text),
		Model:      placeholderModel,
	}, nil
}

// ── AnthropicResponder (Messages API) ──────────────────────

const systemPrompt = `You are the Code, Bro! coding tutor. Answer programming questions for
learners clearly and briefly. Prefer small runnable examples, explain the idea behind the
fix, and point the learner to the concept they should practice next.`

type AnthropicResponder struct {
	client  *anthropic.Client
	model   string
	backoff time.Duration
	log     *logger.Logger
}

func NewAnthropicResponder(apiKey, model string, log *logger.Logger, opts ...option.RequestOption) *AnthropicResponder {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicResponder{
		client:  &client,
		model:   model,
		backoff: 2 * time.Second,
		log:     log.With("responder", "anthropic", "model", model),
	}
}

func (c *AnthropicResponder) Respond(ctx context.Context, message string) (*Reply, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.3),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(message)),
		},
	}

	msg, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range msg.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &Reply{
		Text:       responseText,
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		Model:      c.model,
	}, nil
}

func (c *AnthropicResponder) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying anthropic call", "attempt", attempt+1, "backoff", c.backoff)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		msg, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		c.log.Warn("anthropic call failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}
