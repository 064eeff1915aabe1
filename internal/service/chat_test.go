package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/internal/store"
	"github.com/brickchat/backend/pkg/logger"
)

func newTestChatService(t *testing.T) (*ChatService, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	log, err := logger.New("error")
	require.NoError(t, err)
	return NewChatService(st, nil, nil, "openai", "gpt-4o", "default", log), st
}

func TestPrepareCreatesThreadAndPersistsUserMessage(t *testing.T) {
	t.Parallel()

	svc, st := newTestChatService(t)
	ctx := context.Background()

	turn, err := svc.Prepare(ctx, "u1", &model.SendMessageRequest{Message: "hello there"})
	require.NoError(t, err)
	assert.NotEmpty(t, turn.ThreadID)
	assert.NotEmpty(t, turn.UserMessageID)
	assert.Equal(t, "default", turn.AgentEndpoint)
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "hello there", turn.Messages[0].Content)

	messages, err := st.ThreadMessages(ctx, turn.ThreadID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, "hello there", messages[0].Content)
}

func TestPrepareReusesThread(t *testing.T) {
	t.Parallel()

	svc, st := newTestChatService(t)
	ctx := context.Background()

	first, err := svc.Prepare(ctx, "u1", &model.SendMessageRequest{Message: "one"})
	require.NoError(t, err)
	second, err := svc.Prepare(ctx, "u1", &model.SendMessageRequest{
		Message:  "two",
		ThreadID: first.ThreadID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	messages, err := st.ThreadMessages(ctx, first.ThreadID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestPrepareFiltersAndBoundsHistory(t *testing.T) {
	t.Parallel()

	svc, _ := newTestChatService(t)

	history := make([]model.HistoryMessage, 0, maxHistoryMessages+5)
	for i := 0; i < maxHistoryMessages+4; i++ {
		history = append(history, model.HistoryMessage{Role: "user", Content: "old"})
	}
	history = append(history, model.HistoryMessage{Role: "system", Content: "dropped"})

	turn, err := svc.Prepare(context.Background(), "u1", &model.SendMessageRequest{
		Message:             "latest",
		ConversationHistory: history,
	})
	require.NoError(t, err)

	// Bounded history, non-chat roles dropped, current message last.
	require.LessOrEqual(t, len(turn.Messages), maxHistoryMessages+1)
	assert.Equal(t, "latest", turn.Messages[len(turn.Messages)-1].Content)
	for _, m := range turn.Messages {
		assert.Contains(t, []string{"user", "assistant"}, m.Role)
	}
}

func TestPrepareRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	svc, _ := newTestChatService(t)
	_, err := svc.Prepare(context.Background(), "u1", &model.SendMessageRequest{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestUpdateFeedbackValidation(t *testing.T) {
	t.Parallel()

	st, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	log, err := logger.New("error")
	require.NoError(t, err)
	svc := NewThreadService(st, log)

	err = svc.UpdateFeedback(context.Background(), "u1", &model.FeedbackRequest{
		MessageID: "m1", ThreadID: "t1", FeedbackType: "sideways",
	})
	assert.ErrorIs(t, err, ErrInvalidFeedback)

	err = svc.UpdateFeedback(context.Background(), "u1", &model.FeedbackRequest{FeedbackType: "up"})
	assert.ErrorIs(t, err, ErrMissingFeedbackTarget)
}
