package model

// StreamMetadata correlates an SSE stream with its thread before any
// content arrives. It is always the first frame of a stream.
type StreamMetadata struct {
	ThreadID      string `json:"thread_id"`
	UserMessageID string `json:"user_message_id"`
	UserID        string `json:"user_id"`
	AgentEndpoint string `json:"agent_endpoint"`
}

// Citation is a deduplicated source reference collected from upstream
// annotation events. IDs are assigned sequentially from "1" in
// first-seen order.
type Citation struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ContentIndex int    `json:"content_index"`
}

// Footnote is one extracted footnote definition. Number follows
// discovery order in the source text, starting at 1.
type Footnote struct {
	ID      string `json:"id"`
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// OutboundEvent is one frame of the outbound SSE stream, serialized as
// a single JSON object per frame. Exactly one field is set per event.
// Metadata is always first; Done or Error is always last.
type OutboundEvent struct {
	Metadata           *StreamMetadata `json:"metadata,omitempty"`
	Content            string          `json:"content,omitempty"`
	Reasoning          string          `json:"reasoning,omitempty"`
	Citations          []Citation      `json:"citations,omitempty"`
	Footnotes          []Footnote      `json:"footnotes,omitempty"`
	AssistantMessageID string          `json:"assistant_message_id,omitempty"`
	Done               bool            `json:"done,omitempty"`
	Error              string          `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e OutboundEvent) Terminal() bool {
	return e.Done || e.Error != ""
}

// MetadataEvent builds the stream's opening frame.
func MetadataEvent(md StreamMetadata) OutboundEvent {
	return OutboundEvent{Metadata: &md}
}

// ContentEvent wraps a fragment of answer text.
func ContentEvent(text string) OutboundEvent {
	return OutboundEvent{Content: text}
}

// ReasoningEvent wraps already-tagged reasoning text.
func ReasoningEvent(wrapped string) OutboundEvent {
	return OutboundEvent{Reasoning: wrapped}
}

// CitationsEvent carries the full deduplicated citation batch.
func CitationsEvent(citations []Citation) OutboundEvent {
	return OutboundEvent{Citations: citations}
}

// FootnotesEvent carries the extracted footnote list.
func FootnotesEvent(footnotes []Footnote) OutboundEvent {
	return OutboundEvent{Footnotes: footnotes}
}

// AssistantMessageIDEvent reports the persisted assistant message.
func AssistantMessageIDEvent(id string) OutboundEvent {
	return OutboundEvent{AssistantMessageID: id}
}

// DoneEvent is the success terminal frame.
func DoneEvent() OutboundEvent {
	return OutboundEvent{Done: true}
}

// ErrorEvent is the failure terminal frame.
func ErrorEvent(msg string) OutboundEvent {
	return OutboundEvent{Error: msg}
}
