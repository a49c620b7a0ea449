package handlers

import (
	"net/http"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/middleware"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/problem"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/auth"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/accounts"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/events"
)

type AccountsHandler struct {
	Service *accounts.Service
	Catalog *events.Catalog
	Tokens  *auth.JWTManager
	Env     string
}

func NewAccountsHandler(service *accounts.Service, catalog *events.Catalog, tokens *auth.JWTManager, env string) *AccountsHandler {
	return &AccountsHandler{Service: service, Catalog: catalog, Tokens: tokens, Env: env}
}

// Required-ness is a domain rule with its own messages, so DTOs only bound
// sizes here.
type signUpRequest struct {
	UserID    string `json:"user_id" validate:"max=256"`
	Password  string `json:"password" validate:"max=1024"`
	AdminCode string `json:"admin_code" validate:"max=256"`
}

type logInRequest struct {
	UserID   string `json:"user_id" validate:"max=256"`
	Password string `json:"password" validate:"max=1024"`
}

type renameRequest struct {
	UserID string `json:"user_id" validate:"max=256"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"max=1024"`
}

type accountResponse struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
	Token   string `json:"token,omitempty"`
}

type enrolledEventsResponse struct {
	UserID string   `json:"user_id"`
	Events []string `json:"events"`
}

func (h *AccountsHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	user, err := h.Service.SignUp(r.Context(), accounts.SignUpParams{
		UserID:    req.UserID,
		Password:  req.Password,
		AdminCode: req.AdminCode,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{UserID: user.ID, IsAdmin: user.IsAdmin})
}

func (h *AccountsHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req logInRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	user, err := h.Service.LogIn(r.Context(), req.UserID, req.Password)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	h.writeSession(w, r, http.StatusOK, user.ID, user.IsAdmin, user.Session)
}

// Rename moves the caller's account and returns a token for the new id. The
// caller's old token stops working.
func (h *AccountsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var req renameRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if err := h.Service.Rename(r.Context(), claims.UserID(), req.UserID); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	session, err := h.Service.Session(r.Context(), req.UserID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	h.writeSession(w, r, http.StatusOK, req.UserID, claims.IsAdmin(), session)
}

// ChangePassword ends every session of the account, the caller's included.
func (h *AccountsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var req passwordRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), claims.UserID(), req.Password); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if err := h.Service.RemoveAccount(r.Context(), claims.UserID()); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnrolledEvents lists the event ids on the caller's own record.
func (h *AccountsHandler) EnrolledEvents(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	ids, err := h.Catalog.EnrolledEvents(r.Context(), claims.UserID())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, enrolledEventsResponse{UserID: claims.UserID(), Events: ids})
}

func (h *AccountsHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, userID string, isAdmin bool, session string) {
	token, err := h.Tokens.Generate(userID, auth.RoleFor(isAdmin), session)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	writeJSON(w, status, accountResponse{UserID: userID, IsAdmin: isAdmin, Token: token})
}
