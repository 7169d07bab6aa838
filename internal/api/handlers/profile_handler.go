package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

// ProfileHandler handles HTTP requests for the study profile.
type ProfileHandler struct {
	service services.ProfileServiceProvider
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service services.ProfileServiceProvider) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Get returns the caller's profile with the API key masked.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to load profile")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, profile.Masked())
}

// Update saves the caller's academic context and, optionally, a new API key.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload models.ProfileUpdate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdateProfile(r.Context(), claims.UserID, payload); err != nil {
		if ve, ok := services.AsValidation(err); ok {
			writeError(w, http.StatusBadRequest, ve.Message)
			return
		}
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to update profile")
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to update profile. Please try again later.", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}
