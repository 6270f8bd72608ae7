package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/crisalida-app/crisalida-be/internal/auth"
	"github.com/crisalida-app/crisalida-be/internal/services"
)

// ProfileHandler handles HTTP requests for the authenticated user's profile.
type ProfileHandler struct {
	service  services.UserServiceProvider
	respond  *Responder
	validate *validator.Validate
	log      zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service services.UserServiceProvider, respond *Responder, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service:  service,
		respond:  respond,
		validate: validator.New(),
		log:      log,
	}
}

// UpdatePayload defines the structure for profile update requests. Every
// field is optional; absent fields are left untouched.
type UpdatePayload struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// Me returns the authenticated user's profile, without the password hash.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.log.Error().Msg("Could not retrieve user claims from context")
		h.respond.Error(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	user, err := h.service.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load profile")
		h.respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.respond.JSON(w, http.StatusOK, "", user)
}

// Update modifies the authenticated user's name, email and/or password.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.log.Error().Msg("Could not retrieve user claims from context")
		h.respond.Error(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	var payload UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Email must be valid and password at least 6 characters")
		return
	}

	passwordHash := ""
	if payload.Password != "" {
		hash, err := auth.HashPassword(payload.Password)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to hash new password")
			h.respond.Error(w, http.StatusInternalServerError, "Server error")
			return
		}
		passwordHash = hash
	}

	if _, err := h.service.UpdateProfile(claims.UserID, payload.Name, payload.Email, passwordHash); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			h.respond.Error(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrEmailTaken):
			h.respond.Error(w, http.StatusBadRequest, "Email is already in use")
		default:
			h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to update profile")
			h.respond.Error(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	h.respond.JSON(w, http.StatusOK, "Profile updated successfully", nil)
}
