package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

// HistoryHandler handles HTTP requests for stored conversations.
type HistoryHandler struct {
	service services.ConversationServiceProvider
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(service services.ConversationServiceProvider) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List returns the caller's conversations, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	conversations, err := h.service.ListConversations(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to list conversations")
		writeError(w, http.StatusInternalServerError, "Failed to load your study history.")
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// Get returns the messages of one conversation. Conversations of other users
// come back empty.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	messages, err := h.service.GetMessages(r.Context(), id, claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Int64("conversation_id", id).Msg("Failed to load messages")
		writeError(w, http.StatusInternalServerError, "Failed to load conversation details.")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Delete removes one conversation. Ids the caller does not own are ignored.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteConversation(r.Context(), id, claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Int64("conversation_id", id).Msg("Failed to delete conversation")
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation.")
		return
	}
	log.Debug().Int64("user_id", claims.UserID).Int64("conversation_id", id).Bool("deleted", deleted).Msg("Delete conversation")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

// Clear removes every conversation of the caller.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.service.ClearConversations(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to clear history")
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to clear history database records.", err.Error())
		return
	}
	log.Info().Int64("user_id", claims.UserID).Int64("deleted", n).Msg("History cleared")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":              "All history cleared successfully",
		"conversationsDeleted": n,
	})
}

func conversationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return 0, false
	}
	return id, true
}
