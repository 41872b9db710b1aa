package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// authService exchanges credentials with the hosted auth server.
type authService interface {
	SignInWithPassword(ctx context.Context, email, password string) (domain.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (domain.AuthSession, error)
}

// AuthHandler serves auth REST endpoints.
type AuthHandler struct {
	svc authService
	log *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc authService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: logger.With("handler", "auth")}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	email := strings.TrimSpace(req.Email)
	var errs []domain.FieldError
	if email == "" {
		errs = append(errs, domain.FieldError{Field: "email", Message: "required"})
	}
	if req.Password == "" {
		errs = append(errs, domain.FieldError{Field: "password", Message: "required"})
	}
	if len(errs) > 0 {
		handleError(h.log, w, r, domain.NewValidationErrors(errs))
		return
	}

	s, err := h.svc.SignInWithPassword(r.Context(), email, req.Password)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(s))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if req.RefreshToken == "" {
		handleError(h.log, w, r, domain.NewValidationError("refreshToken", "required"))
		return
	}

	s, err := h.svc.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(s))
}

func toAuthResponse(s domain.AuthSession) authResponse {
	return authResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User: userResponse{
			ID:    s.UserID.String(),
			Email: s.Email,
		},
	}
}
