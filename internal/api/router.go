package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/handlers"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/middleware"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/auth"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/config"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/accounts"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/enrollment"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/events"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/metrics"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Config      config.Config
	Logger      zerolog.Logger
	Store       docstore.Store
	Accounts    *accounts.Service
	Catalog     *events.Catalog
	Coordinator *enrollment.Coordinator
	Reconciler  *enrollment.Reconciler
	Tokens      *auth.JWTManager
	Version     string
	GitCommit   string
	BuildDate   string
}

// NewRouter wires every route and wraps the mux in the shared middleware
// chain: correlation ids, tracing, request logs, security headers, metrics
// and body limits.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	accountsHandler := handlers.NewAccountsHandler(deps.Accounts, deps.Catalog, deps.Tokens, env)
	eventsHandler := handlers.NewEventsHandler(deps.Catalog, env)
	enrollmentHandler := handlers.NewEnrollmentHandler(deps.Coordinator, env)
	adminHandler := handlers.NewAdminHandler(deps.Reconciler, deps.Accounts.Validator(), env)
	health := handlers.NewHealthChecker(deps.Store, cfg.Store.Backend, deps.Version, deps.GitCommit)

	limit := middleware.RateLimit(cfg.RateLimit)
	requireUser := middleware.RequireUser(deps.Tokens, deps.Accounts.Validator(), env)
	requireAdmin := middleware.RequireAdmin(env)

	public := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierPublic)(limit(h))
	}
	login := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierLogin)(limit(h))
	}
	member := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierMember)(requireUser(limit(h)))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierMember)(requireUser(requireAdmin(limit(h))))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate, cfg.Store.Backend))
	mux.Handle("/api/v1/openapi.json", OpenAPIHandler())

	mux.Handle("/api/v1/signup", methodMux(map[string]http.Handler{
		http.MethodPost: login(accountsHandler.SignUp),
	}))
	mux.Handle("/api/v1/login", methodMux(map[string]http.Handler{
		http.MethodPost: login(accountsHandler.LogIn),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet: public(eventsHandler.List),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: public(eventsHandler.Get),
	}))
	mux.Handle("/api/v1/events/{id}/company", methodMux(map[string]http.Handler{
		http.MethodGet: public(eventsHandler.Company),
	}))
	mux.Handle("/api/v1/events/{id}/enrollment", methodMux(map[string]http.Handler{
		http.MethodGet:    member(enrollmentHandler.State),
		http.MethodPut:    member(enrollmentHandler.Enroll),
		http.MethodDelete: member(enrollmentHandler.Unenroll),
	}))

	mux.Handle("/api/v1/me", methodMux(map[string]http.Handler{
		http.MethodDelete: member(accountsHandler.Remove),
	}))
	mux.Handle("/api/v1/me/id", methodMux(map[string]http.Handler{
		http.MethodPatch: member(accountsHandler.Rename),
	}))
	mux.Handle("/api/v1/me/password", methodMux(map[string]http.Handler{
		http.MethodPatch: member(accountsHandler.ChangePassword),
	}))
	mux.Handle("/api/v1/me/events", methodMux(map[string]http.Handler{
		http.MethodGet: member(accountsHandler.EnrolledEvents),
	}))

	mux.Handle("/api/v1/admin/reconcile", methodMux(map[string]http.Handler{
		http.MethodPost: admin(adminHandler.Reconcile),
	}))
	mux.Handle("/api/v1/admin/codes", methodMux(map[string]http.Handler{
		http.MethodPost: admin(adminHandler.AddAdminCode),
	}))

	var handler http.Handler = mux
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.SecurityHeaders(!cfg.IsDevelopment())(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger, cfg.RateLimit.TrustedProxyCIDRs...)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
