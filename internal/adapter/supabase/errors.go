package supabase

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// apiError covers both PostgREST ({code,message,details}) and GoTrue
// ({error,error_description} or {code,msg}) error bodies.
type apiError struct {
	Code             any    `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
}

func (e apiError) code() string {
	if s, ok := e.Code.(string); ok {
		return s
	}
	return ""
}

func (e apiError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// mapResponseError converts an error response to a domain error.
func mapResponseError(status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)
	msg := e.text()

	switch e.code() {
	case "42501":
		return &domain.UpstreamError{Kind: domain.ErrForbidden, Message: msg}
	case "PGRST116":
		return &domain.UpstreamError{Kind: domain.ErrNotFound, Message: msg}
	case "P0001":
		return &domain.UpstreamError{Kind: classifyRejection(msg), Message: msg}
	case "23505":
		return &domain.UpstreamError{Kind: domain.ErrAlreadyExists, Message: msg}
	case "23503":
		return &domain.UpstreamError{Kind: domain.ErrNotFound, Message: msg}
	case "23514", "22P02":
		return &domain.UpstreamError{Kind: domain.ErrValidation, Message: msg}
	}

	switch {
	case status == http.StatusUnauthorized:
		return &domain.UpstreamError{Kind: domain.ErrUnauthorized, Message: msg}
	case status == http.StatusForbidden:
		return &domain.UpstreamError{Kind: domain.ErrForbidden, Message: msg}
	case status == http.StatusNotFound || status == http.StatusNotAcceptable:
		return &domain.UpstreamError{Kind: domain.ErrNotFound, Message: msg}
	case status == http.StatusConflict:
		return &domain.UpstreamError{Kind: domain.ErrConflict, Message: msg}
	case status >= http.StatusInternalServerError:
		return &domain.UpstreamError{Kind: domain.ErrUnavailable, Message: msg}
	case e.Error == "invalid_grant", e.ErrorCode == "invalid_credentials":
		return &domain.UpstreamError{Kind: domain.ErrUnauthorized, Message: msg}
	}
	return &domain.UpstreamError{Kind: domain.ErrValidation, Message: msg}
}

// classifyRejection maps the message of a refused spend to a domain error.
// The ledger functions only return free text, in Korean or English.
func classifyRejection(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "부족"), strings.Contains(lower, "insufficient"), strings.Contains(lower, "not enough"):
		return domain.ErrInsufficientPoints
	case strings.Contains(lower, "이미"), strings.Contains(lower, "already"):
		return domain.ErrAlreadyOwned
	case strings.Contains(lower, "권한"), strings.Contains(lower, "not allowed"), strings.Contains(lower, "permission"):
		return domain.ErrForbidden
	}
	return domain.ErrConflict
}
