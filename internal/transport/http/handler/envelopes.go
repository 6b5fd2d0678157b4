package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-api-magiclink/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionEnvelope describes the caller's current session.
type SessionEnvelope struct {
	UserID    string    `json:"user_id"`
	Issuer    string    `json:"issuer"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Client-facing error messages. Backend detail is only ever logged.
const (
	msgInvalidRequest = "invalid request"
	msgUnauthorized   = "unauthorized"
	msgInternal       = "internal server error"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps a domain error kind to a status and a fixed message.
// Not-found, expired and unauthorized are deliberately indistinguishable.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotification):
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
	default:
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
