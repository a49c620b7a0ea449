package handlers

import (
	"net/http"
	"strconv"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/problem"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/accounts"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/enrollment"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/sanitize"
)

type AdminHandler struct {
	Reconciler *enrollment.Reconciler
	Validator  *accounts.Validator
	Env        string
}

func NewAdminHandler(reconciler *enrollment.Reconciler, validator *accounts.Validator, env string) *AdminHandler {
	return &AdminHandler{Reconciler: reconciler, Validator: validator, Env: env}
}

type adminCodeRequest struct {
	Key  string `json:"key" validate:"required,max=128"`
	Code string `json:"code" validate:"required,max=256"`
}

// Reconcile runs one repair sweep. With dry_run=true the report lists the
// repairs without writing them. Individual pair failures are counted in the
// report; only a failed scan turns into an error response.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithErrors(map[string]any{"dry_run": "must be a boolean"}))
			return
		}
		dryRun = parsed
	}

	report, err := h.Reconciler.Reconcile(r.Context(), enrollment.Options{DryRun: dryRun})
	if err != nil && report.Failed == 0 {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AddAdminCode stores a code that grants admin rights at signup.
func (h *AdminHandler) AddAdminCode(w http.ResponseWriter, r *http.Request) {
	var req adminCodeRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if !docstore.ValidKey(req.Key) || !sanitize.IsClean(req.Code) {
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeValidation, "Validation failed", nil, h.Env,
			problem.WithDetail("key must be a valid store key and code must not contain injection symbols"))
		return
	}
	if err := h.Validator.AddAdminCode(r.Context(), req.Key, req.Code); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
