package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-api-magiclink/internal/application/auth"
	"github.com/go-api-magiclink/internal/domain"
	"github.com/go-api-magiclink/internal/pkg/validate"
	"github.com/go-api-magiclink/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

// AuthHandler serves the magic-link endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		slog.DebugContext(r.Context(), "login request rejected", "err", err)
		writeServiceError(w, err)
		return
	}
	if _, err := h.svc.RequestLogin(r.Context(), req.UserEmail); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "magic link sent"})
}

// Verify handles GET /auth/verify/{code}. The token is returned as a bare JSON
// string and set as a cookie; neither is written unless both can be.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	sess, err := h.svc.Verify(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.SetCookie(w, sessionCookie(sess))
	writeJSON(w, http.StatusOK, sess.Token)
}

// Session handles GET /auth/session behind middleware.Auth.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		UserID:    claims.Subject,
		Issuer:    claims.Issuer,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

func sessionCookie(sess *domain.Session) *http.Cookie {
	return &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(domain.SessionTTL.Seconds()),
		Expires:  sess.ExpiresAt,
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
		Secure:   true,
	}
}
