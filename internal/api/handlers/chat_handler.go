package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/ai"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

// ChatHandler handles requests to the AI tools.
type ChatHandler struct {
	service services.ChatServiceProvider
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(service services.ChatServiceProvider) *ChatHandler {
	return &ChatHandler{service: service}
}

// Chat runs one turn with the selected tool.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Chat(r.Context(), claims.UserID, req)
	if err != nil {
		var pe *ai.ProviderError
		switch {
		case errors.As(err, &pe):
			writeErrorDetails(w, http.StatusBadGateway, pe.Message, pe.Detail)
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
		default:
			if ve, ok := services.AsValidation(err); ok {
				writeError(w, http.StatusBadRequest, ve.Message)
				return
			}
			log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Chat request failed")
			writeErrorDetails(w, http.StatusInternalServerError, "AI processing failed. Please try again later.", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
