package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/trainerhub/schedule-assistant/internal/assistant"
	"github.com/trainerhub/schedule-assistant/internal/middleware"
	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/internal/schedule"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
)

// ChatHandler handles the admin chat endpoints.
type ChatHandler struct {
	orchestrator *assistant.Orchestrator
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(orch *assistant.Orchestrator, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orch,
		logger:       log,
	}
}

// Transcript handles GET /api/v1/chat/messages
func (h *ChatHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	messages, busy := h.orchestrator.History()
	writeJSON(w, http.StatusOK, model.TranscriptResponse{
		Messages: messages,
		Busy:     busy,
	})
}

// Send handles POST /api/v1/chat/messages. The turn runs to completion
// before the refreshed transcript is returned.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orchestrator.Submit(r.Context(), req.Content); err != nil {
		h.writeSubmitError(w, err)
		return
	}

	messages, busy := h.orchestrator.History()
	writeJSON(w, http.StatusOK, model.TranscriptResponse{
		Messages: messages,
		Busy:     busy,
	})
}

// SelectCancellation handles POST /api/v1/chat/cancellations.
func (h *ChatHandler) SelectCancellation(w http.ResponseWriter, r *http.Request) {
	var req model.SelectCancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orchestrator.SelectForCancellation(r.Context(), req.EntryID); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule entry not found")
			return
		}
		h.writeSubmitError(w, err)
		return
	}

	messages, busy := h.orchestrator.History()
	writeJSON(w, http.StatusOK, model.TranscriptResponse{
		Messages: messages,
		Busy:     busy,
	})
}

func (h *ChatHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistant.ErrBusy):
		writeError(w, http.StatusConflict, "a chat turn is already in progress")
	case errors.Is(err, assistant.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is empty")
	default:
		h.logger.Error("chat submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
	}
}
