// Package llm provides upstream model client interfaces and implementations.
//
// Providers decode their wire events into the StreamEvent tagged union at the
// stream-consumption boundary, so no business logic ever inspects
// provider-specific types.
package llm

import (
	"context"
)

// EventKind identifies the variant of a StreamEvent.
type EventKind string

const (
	// EventTextDelta carries a fragment of answer text.
	EventTextDelta EventKind = "text_delta"
	// EventReasoningDelta carries a fragment of model reasoning narration,
	// explicitly tagged as such by the upstream protocol.
	EventReasoningDelta EventKind = "reasoning_delta"
	// EventAnnotationAdded carries a citation attached to a span of output.
	EventAnnotationAdded EventKind = "annotation_added"
	// EventDone terminates the stream. Exactly one per stream; no event
	// is valid after it.
	EventDone EventKind = "done"
)

// Annotation is a structured citation carried by an annotation event.
type Annotation struct {
	Title string
	URL   string
	Kind  string
}

// StreamEvent is the decoded form of one upstream stream chunk.
type StreamEvent struct {
	Kind         EventKind
	Text         string
	ContentIndex int
	Annotation   *Annotation
}

// EventFunc is called for each decoded event during streaming. Returning an
// error aborts the stream.
type EventFunc func(ev StreamEvent) error

// ChatMessage represents a chat message for the upstream model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a completion request.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ContentBlock is one block of a non-streaming response.
type ContentBlock struct {
	Text        string
	Annotations []Annotation
}

// Response is a complete non-streaming response.
type Response struct {
	Blocks []ContentBlock
}

// Text concatenates the text of all blocks.
func (r *Response) Text() string {
	var out string
	for _, b := range r.Blocks {
		out += b.Text
	}
	return out
}

// Client is the interface for upstream model providers.
type Client interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *ChatRequest) (*Response, error)

	// Stream sends a streaming completion request, invoking fn for each
	// decoded event. A successful stream ends with exactly one EventDone.
	Stream(ctx context.Context, req *ChatRequest, fn EventFunc) error

	// Name returns the provider name.
	Name() string
}

// Provider is the type of upstream model provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)
