package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the Anthropic Messages API client. Thinking deltas map
// to EventReasoningDelta; the Messages API carries no annotation events.
type AnthropicClient struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, defaultModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	return &AnthropicClient{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func (c *AnthropicClient) buildParams(req *ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxOutputTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}

// Stream sends a streaming request and decodes the wire events into
// StreamEvents.
func (c *AnthropicClient) Stream(ctx context.Context, req *ChatRequest, fn EventFunc) error {
	stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))

	for stream.Next() {
		event := stream.Current()
		variant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		switch delta := variant.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if delta.Text == "" {
				continue
			}
			ev := StreamEvent{Kind: EventTextDelta, Text: delta.Text, ContentIndex: int(variant.Index)}
			if err := fn(ev); err != nil {
				return err
			}
		case anthropic.ThinkingDelta:
			if delta.Thinking == "" {
				continue
			}
			if err := fn(StreamEvent{Kind: EventReasoningDelta, Text: delta.Thinking}); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("messages stream: %w", err)
	}

	return fn(StreamEvent{Kind: EventDone})
}

// Complete sends a non-streaming request.
func (c *AnthropicClient) Complete(ctx context.Context, req *ChatRequest) (*Response, error) {
	msg, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("messages create: %w", err)
	}

	out := &Response{}
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.Blocks = append(out.Blocks, ContentBlock{Text: text.Text})
		}
	}
	return out, nil
}
