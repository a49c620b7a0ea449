package handlers

import (
	"net/http"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/middleware"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/problem"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/enrollment"
)

type EnrollmentHandler struct {
	Coordinator *enrollment.Coordinator
	Env         string
}

func NewEnrollmentHandler(coordinator *enrollment.Coordinator, env string) *EnrollmentHandler {
	return &EnrollmentHandler{Coordinator: coordinator, Env: env}
}

type enrollmentStateResponse struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	State   string `json:"state"`
}

// Enroll links the caller to the event in the path.
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	result, err := h.Coordinator.Enroll(r.Context(), pathParam(r, "id"), claims.UserID())
	h.writeResult(w, r, result, err)
}

func (h *EnrollmentHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	result, err := h.Coordinator.Unenroll(r.Context(), pathParam(r, "id"), claims.UserID())
	h.writeResult(w, r, result, err)
}

// State reports whether the caller and the event list each other.
func (h *EnrollmentHandler) State(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	eventID := pathParam(r, "id")
	state, err := h.Coordinator.State(r.Context(), eventID, claims.UserID())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentStateResponse{EventID: eventID, UserID: claims.UserID(), State: state.String()})
}

func (h *EnrollmentHandler) writeResult(w http.ResponseWriter, r *http.Request, result enrollment.Result, err error) {
	switch result {
	case enrollment.Success:
		w.WriteHeader(http.StatusNoContent)
	case enrollment.NotFound:
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User or event not found", err, h.Env)
	case enrollment.Conflict:
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Concurrent update, try again", err, h.Env)
	default:
		problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUnavailable, "Store unavailable", err, h.Env)
	}
}
