package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/crisalida-app/crisalida-be/internal/services"
)

// AuthHandler handles HTTP requests for the authentication flows.
type AuthHandler struct {
	service  services.AuthServiceProvider
	respond  *Responder
	validate *validator.Validate
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, respond *Responder, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		respond:  respond,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshPayload defines the structure for token refresh requests.
type RefreshPayload struct {
	Token string `json:"token"`
}

// LogoutPayload defines the structure for logout requests.
type LogoutPayload struct {
	Email string `json:"email" validate:"required,email"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Email must be valid and password at least 6 characters")
		return
	}

	user, err := h.service.Register(payload.Name, payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			h.respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.log.Error().Err(err).Msg("Failed to register user")
		h.respond.Error(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.respond.JSON(w, http.StatusCreated, "User registered successfully", map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	pair, user, err := h.service.Login(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// Same message whether the email is unknown or the password is
			// wrong, so responses carry no enumeration signal.
			h.respond.Error(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		h.log.Error().Err(err).Msg("Login failed")
		h.respond.Error(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.respond.JSON(w, http.StatusOK, "Login successful", map[string]interface{}{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user,
	})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Token == "" {
		h.respond.Error(w, http.StatusUnauthorized, "No refresh token provided")
		return
	}

	pair, err := h.service.Refresh(payload.Token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			h.respond.Error(w, http.StatusForbidden, "Invalid refresh token")
			return
		}
		h.log.Error().Err(err).Msg("Token refresh failed")
		h.respond.Error(w, http.StatusInternalServerError, "Token refresh failed")
		return
	}

	h.respond.JSON(w, http.StatusOK, "Tokens renewed", pair)
}

// Logout revokes the user's current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload LogoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.respond.Error(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.service.Logout(payload.Email); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.respond.Error(w, http.StatusBadRequest, "User not found")
			return
		}
		h.log.Error().Err(err).Msg("Logout failed")
		h.respond.Error(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	h.respond.JSON(w, http.StatusOK, "Session closed successfully", nil)
}
