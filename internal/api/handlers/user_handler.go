package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/auth"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

// UserHandler handles registration and the session cookie.
type UserHandler struct {
	service services.UserServiceProvider
	issuer  *auth.Issuer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, issuer *auth.Issuer) *UserHandler {
	return &UserHandler{service: service, issuer: issuer}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			writeError(w, http.StatusBadRequest, ve.Message)
			return
		}
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "This email is already registered.")
			return
		}
		log.Error().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		writeError(w, http.StatusInternalServerError, "Something went wrong during signup. Please try again later.")
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// Login checks credentials and sets the session cookie.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if !services.ValidEmail(payload.Email) {
		writeError(w, http.StatusBadRequest, "Please use your @gmail.com account.")
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", services.NormalizeEmail(payload.Email)).Msg("Failed authentication attempt")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate user")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	summary := user.Summary()
	token, expires, err := h.issuer.Generate(summary)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate JWT")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	h.issuer.SetCookie(w, token, expires)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    summary,
	})
}

// Logout clears the session cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.issuer.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
