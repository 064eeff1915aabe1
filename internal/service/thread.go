package service

import (
	"context"
	"errors"

	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/internal/store"
	"github.com/brickchat/backend/pkg/logger"
)

var (
	// ErrInvalidFeedback is returned for an unknown feedback type.
	ErrInvalidFeedback = errors.New("feedback_type must be up, down, or none")
	// ErrMissingFeedbackTarget is returned when the feedback request names
	// no message.
	ErrMissingFeedbackTarget = errors.New("message_id and thread_id are required")
)

// ThreadService serves thread history and feedback.
type ThreadService struct {
	store *store.Store
	log   *logger.Logger
}

// NewThreadService creates a thread service.
func NewThreadService(st *store.Store, log *logger.Logger) *ThreadService {
	return &ThreadService{store: st, log: log}
}

// UserThreads lists the user's threads, most recently active first.
func (s *ThreadService) UserThreads(ctx context.Context, userID string) (*model.ListThreadsResponse, error) {
	threads, err := s.store.UserThreads(ctx, userID)
	if err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []model.ThreadSummary{}
	}
	return &model.ListThreadsResponse{Threads: threads}, nil
}

// ThreadMessages lists a thread's messages in chronological order.
func (s *ThreadService) ThreadMessages(ctx context.Context, threadID string) (*model.ListMessagesResponse, error) {
	messages, err := s.store.ThreadMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return &model.ListMessagesResponse{Messages: messages}, nil
}

// UpdateFeedback records, replaces, or clears thumb feedback on a message.
func (s *ThreadService) UpdateFeedback(ctx context.Context, userID string, req *model.FeedbackRequest) error {
	switch req.FeedbackType {
	case "up", "down", "none":
	default:
		return ErrInvalidFeedback
	}
	if req.MessageID == "" || req.ThreadID == "" {
		return ErrMissingFeedbackTarget
	}
	return s.store.UpdateFeedback(ctx, userID, req.MessageID, req.ThreadID, req.FeedbackType)
}
