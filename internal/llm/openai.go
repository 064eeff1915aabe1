package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const defaultMaxOutputTokens = 4096

// OpenAIClient talks to an OpenAI-compatible Responses endpoint, such as a
// Databricks serving endpoint configured via base URL and token.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// baseURL is optional; when empty the public API endpoint is used.
func NewOpenAIClient(apiKey, baseURL, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		defaultModel: defaultModel,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

func (c *OpenAIClient) buildParams(req *ChatRequest) responses.ResponseNewParams {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxOutputTokens
	}

	items := make(responses.ResponseInputParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := responses.EasyInputMessageRole(msg.Role)
		items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, role))
	}

	params := responses.ResponseNewParams{
		Model:           shared.ResponsesModel(model),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}

// Stream sends a streaming request and decodes the wire events into
// StreamEvents.
func (c *OpenAIClient) Stream(ctx context.Context, req *ChatRequest, fn EventFunc) error {
	stream := c.client.Responses.NewStreaming(ctx, c.buildParams(req))

	contentIndex := 0
	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "response.output_text.delta":
			delta := event.Delta.OfString
			if delta == "" {
				continue
			}
			if idx := int(event.ContentIndex); idx > 0 {
				contentIndex = idx
			}
			if err := fn(StreamEvent{Kind: EventTextDelta, Text: delta, ContentIndex: contentIndex}); err != nil {
				return err
			}

		case "response.reasoning_summary_text.delta", "response.reasoning_text.delta":
			delta := event.Delta.OfString
			if delta == "" {
				continue
			}
			if err := fn(StreamEvent{Kind: EventReasoningDelta, Text: delta}); err != nil {
				return err
			}

		case "response.output_text.annotation.added":
			// The annotation payload is polymorphic on the wire; decode the
			// fields citations need straight from the raw frame.
			var payload struct {
				ContentIndex int `json:"content_index"`
				Annotation   struct {
					Title string `json:"title"`
					URL   string `json:"url"`
					Type  string `json:"type"`
				} `json:"annotation"`
			}
			if err := json.Unmarshal([]byte(event.RawJSON()), &payload); err != nil {
				continue
			}
			kind := payload.Annotation.Type
			if kind == "" {
				kind = "url_citation"
			}
			ev := StreamEvent{
				Kind:         EventAnnotationAdded,
				ContentIndex: payload.ContentIndex,
				Annotation: &Annotation{
					Title: payload.Annotation.Title,
					URL:   payload.Annotation.URL,
					Kind:  kind,
				},
			}
			if err := fn(ev); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("responses stream: %w", err)
	}

	return fn(StreamEvent{Kind: EventDone})
}

// Complete sends a non-streaming request and decodes the ordered content
// blocks with their annotations.
func (c *OpenAIClient) Complete(ctx context.Context, req *ChatRequest) (*Response, error) {
	resp, err := c.client.Responses.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("responses create: %w", err)
	}

	out := &Response{}
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type != "output_text" {
				continue
			}
			block := ContentBlock{Text: content.Text}
			for _, ann := range content.Annotations {
				kind := ann.Type
				if kind == "" {
					kind = "url_citation"
				}
				block.Annotations = append(block.Annotations, Annotation{
					Title: ann.Title,
					URL:   ann.URL,
					Kind:  kind,
				})
			}
			out.Blocks = append(out.Blocks, block)
		}
	}
	return out, nil
}
