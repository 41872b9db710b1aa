package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
	"github.com/heartmarshall/hideout-backend/internal/service/profile"
)

type pointGranter interface {
	GrantPoints(ctx context.Context, in economy.GrantInput) error
}

type profileService interface {
	SetupTeacher(ctx context.Context, in profile.SetupInput) (domain.TeacherProfile, error)
}

// TeacherHandler serves teacher-only endpoints.
type TeacherHandler struct {
	points  pointGranter
	profile profileService
	log     *slog.Logger
}

// NewTeacherHandler creates a TeacherHandler.
func NewTeacherHandler(points pointGranter, profile profileService, logger *slog.Logger) *TeacherHandler {
	return &TeacherHandler{points: points, profile: profile, log: logger.With("handler", "teacher")}
}

type grantRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// GrantPoints credits or debits a student's points.
// POST /api/v1/students/{studentID}/points
func (h *TeacherHandler) GrantPoints(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		handleError(h.log, w, r, domain.NewValidationError("student_id", "must be a UUID"))
		return
	}

	var req grantRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	err = h.points.GrantPoints(r.Context(), economy.GrantInput{
		StudentID: studentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setupProfileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	APIMode  string `json:"apiMode"`
}

type profileResponse struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	APIMode  string `json:"apiMode"`
}

// SetupProfile turns the caller into a teacher. Open to any signed-in user.
// POST /api/v1/teachers/profile
func (h *TeacherHandler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	var req setupProfileRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	p, err := h.profile.SetupTeacher(r.Context(), profile.SetupInput{
		FullName: req.FullName,
		Email:    req.Email,
		APIMode:  req.APIMode,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, profileResponse{
		FullName: p.FullName,
		Email:    p.Email,
		APIMode:  string(p.APIMode),
	})
}
