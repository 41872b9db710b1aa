package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

type errorResponse struct {
	Error  string       `json:"error"`
	Code   string       `json:"code,omitempty"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorStatus maps a domain error to its HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity, "insufficient_points"
	case errors.Is(err, domain.ErrNotOwned):
		return http.StatusUnprocessableEntity, "not_owned"
	case errors.Is(err, domain.ErrAlreadyOwned):
		return http.StatusConflict, "already_owned"
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// handleError writes err as a JSON error. Unclassified errors are logged and
// hidden from the client.
func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	resp := errorResponse{Error: publicMessage(err), Code: code}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Error = "validation failed"
		for _, fe := range ve.Errors {
			resp.Fields = append(resp.Fields, fieldError{Field: fe.Field, Message: fe.Message})
		}
	}

	switch status {
	case http.StatusInternalServerError:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		resp.Error = "internal server error"
	case http.StatusServiceUnavailable:
		log.WarnContext(r.Context(), "upstream unavailable", slog.String("error", err.Error()))
		resp.Error = "service temporarily unavailable"
	}

	writeJSON(w, status, resp)
}

// publicMessage prefers the ledger's own rejection text over the wrapped
// error chain, which carries upstream paths.
func publicMessage(err error) string {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	for _, sentinel := range []error{
		domain.ErrInsufficientPoints, domain.ErrAlreadyOwned, domain.ErrNotOwned, domain.ErrBusy,
		domain.ErrUnauthorized, domain.ErrForbidden, domain.ErrNotFound, domain.ErrConflict,
		domain.ErrAlreadyExists,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// decodeBody reads a JSON request body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid request body")
	}
	return nil
}
