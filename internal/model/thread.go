package model

import (
	"time"
)

// Thread represents a conversation thread.
type Thread struct {
	ThreadID  string         `json:"thread_id"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ThreadSummary is a thread with its most recent message, used for
// the thread list view.
type ThreadSummary struct {
	ThreadID         string     `json:"thread_id"`
	CreatedAt        time.Time  `json:"thread_created_at"`
	UpdatedAt        time.Time  `json:"thread_updated_at"`
	LastMessage      string     `json:"last_message,omitempty"`
	LastMessageTime  *time.Time `json:"last_message_time,omitempty"`
	LastMessageRole  string     `json:"last_message_role,omitempty"`
	AgentEndpoint    string     `json:"agent_endpoint,omitempty"`
	FirstUserMessage string     `json:"first_user_message,omitempty"`
}

// ListThreadsResponse is the response for listing a user's threads.
type ListThreadsResponse struct {
	Threads []ThreadSummary `json:"threads"`
}
