package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// envelope is the uniform JSON response shape for every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Responder writes enveloped JSON responses. It is handed to each handler
// explicitly so nothing in this package touches process-wide state.
type Responder struct {
	log zerolog.Logger
}

// NewResponder creates a Responder that logs encode failures to log.
func NewResponder(log zerolog.Logger) *Responder {
	return &Responder{log: log}
}

// JSON writes a success envelope with the given status, message and data.
func (rs *Responder) JSON(w http.ResponseWriter, status int, message string, data interface{}) {
	rs.write(w, status, envelope{Success: true, Message: message, Data: data})
}

// Error writes a failure envelope. Internal details never go in message;
// callers log them and pass a client-safe string here.
func (rs *Responder) Error(w http.ResponseWriter, status int, message string) {
	rs.write(w, status, envelope{Success: false, Message: message})
}

func (rs *Responder) write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.log.Error().Err(err).Msg("Failed to encode response body")
	}
}
