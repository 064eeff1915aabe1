// Package model defines data structures for the chat backend.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a persisted chat message.
type Message struct {
	MessageID     string         `json:"message_id"`
	ThreadID      string         `json:"thread_id"`
	UserID        string         `json:"user_id"`
	Role          Role           `json:"message_role"`
	Content       string         `json:"message_content"`
	AgentEndpoint string         `json:"agent_endpoint,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	FeedbackType  string         `json:"feedback_type,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// HistoryMessage is one prior turn supplied by the client.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendMessageRequest is the request to send a new chat message.
type SendMessageRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []HistoryMessage `json:"conversation_history,omitempty"`
	Stream              *bool            `json:"stream,omitempty"`
	ThreadID            string           `json:"thread_id,omitempty"`
	UserID              string           `json:"user_id,omitempty"`
}

// Streaming reports whether the client asked for a streamed response.
// Omitting the field means streaming, for backward compatibility.
func (r *SendMessageRequest) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// SendMessageResponse is the non-streaming response body.
type SendMessageResponse struct {
	Response           string     `json:"response"`
	Citations          []Citation `json:"citations"`
	Backend            string     `json:"backend"`
	ThreadID           string     `json:"thread_id"`
	UserMessageID      string     `json:"user_message_id"`
	AssistantMessageID string     `json:"assistant_message_id,omitempty"`
	AgentEndpoint      string     `json:"agent_endpoint"`
	Status             string     `json:"status"`
}

// ListMessagesResponse is the response for listing thread messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// FeedbackRequest updates feedback on an assistant message.
// FeedbackType "none" removes previously recorded feedback.
type FeedbackRequest struct {
	MessageID    string `json:"message_id"`
	ThreadID     string `json:"thread_id"`
	FeedbackType string `json:"feedback_type"`
}
