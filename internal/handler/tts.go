package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/middleware"
	"github.com/brickchat/backend/internal/tts"
	"github.com/brickchat/backend/pkg/logger"
	"github.com/brickchat/backend/pkg/metrics"
)

// TTSHandler handles text-to-speech endpoints.
type TTSHandler struct {
	pipeline *tts.Pipeline
	logger   *logger.Logger
}

// NewTTSHandler creates a new TTS handler.
func NewTTSHandler(pipeline *tts.Pipeline, log *logger.Logger) *TTSHandler {
	return &TTSHandler{pipeline: pipeline, logger: log}
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// SpeakStream handles POST /api/v1/tts/speak-stream. Audio is delivered as
// SSE frames of base64 chunks, ending with a done frame.
func (h *TTSHandler) SpeakStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	err := h.pipeline.Speak(ctx, req.Text, req.Voice, func(f tts.Frame) error {
		return sse.send(f)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Error("speech stream failed",
			zap.String("user_id", middleware.GetUserID(ctx)),
			zap.Error(err))
	}
}
