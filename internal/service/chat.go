// Package service implements business logic between handlers and storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/llm"
	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/internal/relay"
	"github.com/brickchat/backend/internal/store"
	"github.com/brickchat/backend/internal/stream"
	"github.com/brickchat/backend/pkg/logger"
	"github.com/brickchat/backend/pkg/metrics"
)

// ErrEmptyMessage is returned when the request carries no message text.
var ErrEmptyMessage = errors.New("message is required")

// maxHistoryMessages bounds how much client-supplied history reaches the
// upstream model.
const maxHistoryMessages = 40

// ChatService coordinates one chat turn: thread bookkeeping, user message
// persistence, the upstream stream, and lifecycle events.
type ChatService struct {
	store    *store.Store
	orch     *stream.Orchestrator
	relay    *relay.Relay
	provider string
	model    string
	endpoint string
	log      *logger.Logger
}

// NewChatService creates a chat service.
func NewChatService(st *store.Store, orch *stream.Orchestrator, rel *relay.Relay, provider, modelName, endpoint string, log *logger.Logger) *ChatService {
	return &ChatService{
		store:    st,
		orch:     orch,
		relay:    rel,
		provider: provider,
		model:    modelName,
		endpoint: endpoint,
		log:      log,
	}
}

// Provider returns the configured upstream provider name.
func (s *ChatService) Provider() string { return s.provider }

// Endpoint returns the configured agent endpoint name.
func (s *ChatService) Endpoint() string { return s.endpoint }

// Prepare validates the request, ensures the thread exists, persists the
// user message, and builds the turn for the orchestrator.
func (s *ChatService) Prepare(ctx context.Context, userID string, req *model.SendMessageRequest) (stream.Request, error) {
	if req.Message == "" {
		return stream.Request{}, ErrEmptyMessage
	}

	threadID := req.ThreadID
	if threadID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return stream.Request{}, fmt.Errorf("generate thread id: %w", err)
		}
		threadID = id.String()
	}
	if err := s.store.EnsureThread(ctx, threadID, userID); err != nil {
		return stream.Request{}, err
	}

	userMessageID, err := s.store.SaveMessage(ctx, threadID, userID, model.RoleUser, req.Message, s.endpoint, nil)
	if err != nil {
		return stream.Request{}, fmt.Errorf("save user message: %w", err)
	}

	messages := make([]llm.ChatMessage, 0, len(req.ConversationHistory)+1)
	history := req.ConversationHistory
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	for _, h := range history {
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: req.Message})

	return stream.Request{
		ThreadID:      threadID,
		UserID:        userID,
		UserMessageID: userMessageID,
		AgentEndpoint: s.endpoint,
		Model:         s.model,
		Messages:      messages,
	}, nil
}

// Stream runs the turn through the orchestrator and publishes the lifecycle
// outcome.
func (s *ChatService) Stream(ctx context.Context, req stream.Request, sink stream.Sink) {
	start := time.Now()
	err := s.orch.Run(ctx, req, sink)
	duration := time.Since(start).Seconds()

	switch {
	case err == nil:
		metrics.RecordLLMStream(s.provider, "ok", duration)
		s.publish(req, relay.EventTurnCompleted, "")
	case errors.Is(err, context.Canceled):
		metrics.RecordLLMStream(s.provider, "canceled", duration)
	default:
		metrics.RecordLLMStream(s.provider, "error", duration)
		s.publish(req, relay.EventStreamFailed, err.Error())
	}
}

// Send runs the turn without streaming.
func (s *ChatService) Send(ctx context.Context, req stream.Request) (*model.SendMessageResponse, error) {
	start := time.Now()
	res, err := s.orch.Complete(ctx, req)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordLLMStream(s.provider, "error", duration)
		s.publish(req, relay.EventStreamFailed, err.Error())
		return nil, err
	}
	metrics.RecordLLMStream(s.provider, "ok", duration)
	s.publish(req, relay.EventTurnCompleted, "")

	citations := res.Citations
	if citations == nil {
		citations = []model.Citation{}
	}
	return &model.SendMessageResponse{
		Response:           res.Content,
		Citations:          citations,
		Backend:            s.provider,
		ThreadID:           req.ThreadID,
		UserMessageID:      req.UserMessageID,
		AssistantMessageID: res.AssistantMessageID,
		AgentEndpoint:      req.AgentEndpoint,
		Status:             "success",
	}, nil
}

// publish emits the lifecycle event on a fresh context: the request context
// is often already canceled when a stream ends.
func (s *ChatService) publish(req stream.Request, eventType relay.EventType, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.relay.Publish(ctx, req.ThreadID, req.UserID, eventType, reason)
	if reason != "" {
		s.log.Debug("published lifecycle event",
			zap.String("thread_id", req.ThreadID),
			zap.String("type", string(eventType)))
	}
}
