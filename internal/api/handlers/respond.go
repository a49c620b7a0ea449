package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/problem"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/accounts"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// decodeJSON reads a single JSON object into dst and runs struct validation.
// It writes the error response itself and reports whether the handler should
// continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, env string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Request too large", err, env)
		case errors.Is(err, io.EOF):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Invalid request", errors.New("empty body"), env)
		default:
			problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Invalid request", err, env)
		}
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Invalid request", err, env)
			return false
		}
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = []map[string]string{{"code": fe.Tag(), "message": "failed " + fe.Tag() + " check"}}
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env, problem.WithErrors(fields))
		return false
	}
	return true
}

// writeDomainError maps service errors onto problem responses: field
// validation to 422, rejected credentials to 401, unreachable stores to 503.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var verrs accounts.ValidationErrors
	if errors.As(err, &verrs) {
		status := http.StatusUnprocessableEntity
		title := "Validation failed"
		if e, ok := verrs.Field(accounts.FieldUserID); ok && e.Code == accounts.CodeCredentials {
			status = http.StatusUnauthorized
			title = accounts.CodeCredentials.Message()
		}
		fields := make(map[string]any, len(verrs))
		for _, e := range verrs {
			fields[e.Field] = []map[string]string{{"code": string(e.Code), "message": e.Code.Message()}}
		}
		typ := problem.TypeValidation
		if status == http.StatusUnauthorized {
			typ = problem.TypeUnauthorized
		}
		problem.Write(w, r, status, typ, title, err, env, problem.WithErrors(fields))
		return
	}

	var se *docstore.StoreError
	switch {
	case errors.Is(err, accounts.ErrUserNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Account not found", err, env)
	case errors.As(err, &se):
		problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUnavailable, "Store unavailable", err, env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}
