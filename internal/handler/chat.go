// Package handler implements the HTTP endpoints of the API server.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/middleware"
	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/internal/service"
	"github.com/brickchat/backend/internal/tts"
	"github.com/brickchat/backend/pkg/logger"
	"github.com/brickchat/backend/pkg/metrics"
)

// ChatHandler handles message sending and chat configuration.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: log}
}

// Send handles POST /api/v1/chat/send.
//
// The default response is an SSE stream of JSON frames; with "stream": false
// the full processed turn comes back as a single JSON body.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.chat.Prepare(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to prepare turn",
			zap.String("user_id", userID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	if !req.Streaming() {
		resp, err := h.chat.Send(ctx, turn)
		if err != nil {
			h.logger.Error("completion failed",
				zap.String("thread_id", turn.ThreadID),
				zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream model request failed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	h.chat.Stream(ctx, turn, func(ev model.OutboundEvent) error {
		return sse.send(ev)
	})
}

// Config handles GET /api/v1/chat/config.
func (h *ChatHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backend":        h.chat.Provider(),
		"agent_endpoint": h.chat.Endpoint(),
		"streaming":      true,
		"default_voice":  tts.DefaultVoice,
	})
}
