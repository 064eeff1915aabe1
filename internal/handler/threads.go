package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/middleware"
	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/internal/service"
	"github.com/brickchat/backend/pkg/logger"
)

// ThreadHandler handles thread history and feedback endpoints.
type ThreadHandler struct {
	threads *service.ThreadService
	logger  *logger.Logger
}

// NewThreadHandler creates a new thread handler.
func NewThreadHandler(threads *service.ThreadService, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{threads: threads, logger: log}
}

// List handles GET /api/v1/chat/threads/{id}, where id is a user id.
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	// Users only ever see their own threads.
	if userID != middleware.GetUserID(ctx) {
		writeError(w, http.StatusForbidden, "cannot access another user's threads")
		return
	}

	resp, err := h.threads.UserThreads(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list threads",
			zap.String("user_id", userID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list threads")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Messages handles GET /api/v1/chat/threads/{id}/messages, where id is a
// thread id.
func (h *ThreadHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID := chi.URLParam(r, "id")

	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.threads.ThreadMessages(ctx, threadID)
	if err != nil {
		h.logger.Error("failed to list messages",
			zap.String("thread_id", threadID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Feedback handles POST /api/v1/chat/feedback.
func (h *ThreadHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.threads.UpdateFeedback(ctx, userID, &req); err != nil {
		if errors.Is(err, service.ErrInvalidFeedback) || errors.Is(err, service.ErrMissingFeedbackTarget) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update feedback",
			zap.String("message_id", req.MessageID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
