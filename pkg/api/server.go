package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/larder/pkg/account"
	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/middleware"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/recipes"
)

// Deps are the collaborators of the API server
type Deps struct {
	Accounts *account.Service
	Recipes  *recipes.Service
	Gate     *middleware.AuthMiddleware
	Cookie   auth.CookieConfig

	// Nil limiters disable rate limiting for their routes
	LoginLimiter middleware.Limiter
	APILimiter   middleware.Limiter

	// AuditSearcher mounts /api/admin/audit when set
	AuditSearcher audit.Searcher

	Logger       *observability.Logger
	Metrics      *observability.Metrics
	TrustProxy   bool
	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server represents our API server
type Server struct {
	router   *mux.Router
	handler  http.Handler
	accounts *AccountHandlers
	recipes  *RecipeHandlers
	deps     Deps
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router:   mux.NewRouter(),
		accounts: NewAccountHandlers(deps.Accounts, deps.Cookie),
		recipes:  NewRecipeHandlers(deps.Recipes),
		deps:     deps,
	}

	s.setupRoutes()
	s.handler = s.wrap(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorCode(w, http.StatusMethodNotAllowed, "Method not allowed", httputil.CodeBadRequest)
	})
	s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))

	api := s.router.PathPrefix("/api").Subrouter()
	if s.deps.APILimiter != nil {
		api.Use(middleware.NewRateLimitMiddleware(s.deps.APILimiter, s.deps.TrustProxy, s.deps.Metrics).Handler)
	}

	gate := s.deps.Gate.Handler
	adminOnly := func(h http.Handler) http.Handler {
		return gate(middleware.RequireRole(auth.RoleAdmin)(h))
	}

	// Account routes; fixed paths before {id}
	var login http.Handler = http.HandlerFunc(s.accounts.login)
	if s.deps.LoginLimiter != nil {
		login = middleware.NewRateLimitMiddleware(s.deps.LoginLimiter, s.deps.TrustProxy, s.deps.Metrics).Handler(login)
	}

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/register", s.accounts.register).Methods(http.MethodPost)
	users.Handle("/login", login).Methods(http.MethodPost)
	users.HandleFunc("/logout", s.accounts.logout).Methods(http.MethodPost)
	users.Handle("/me", gate(http.HandlerFunc(s.accounts.me))).Methods(http.MethodGet)
	users.Handle("/change-password", gate(http.HandlerFunc(s.accounts.changePassword))).Methods(http.MethodPut)
	users.Handle("/{id}", adminOnly(http.HandlerFunc(s.accounts.getUser))).Methods(http.MethodGet)

	// Recipe routes; /create and /get are kept for older clients
	create := gate(http.HandlerFunc(s.recipes.create))
	rec := api.PathPrefix("/recipes").Subrouter()
	rec.Handle("", create).Methods(http.MethodPost)
	rec.Handle("/create", create).Methods(http.MethodPost)
	rec.HandleFunc("", s.recipes.list).Methods(http.MethodGet)
	rec.HandleFunc("/get", s.recipes.list).Methods(http.MethodGet)
	rec.Handle("/my-recipes", gate(http.HandlerFunc(s.recipes.mine))).Methods(http.MethodGet)
	rec.HandleFunc("/{id}", s.recipes.get).Methods(http.MethodGet)
	rec.Handle("/{id}", gate(http.HandlerFunc(s.recipes.update))).Methods(http.MethodPut)
	rec.Handle("/{id}", gate(http.HandlerFunc(s.recipes.delete))).Methods(http.MethodDelete)

	// Audit trail, only with a searchable sink
	if s.deps.AuditSearcher != nil {
		admin := api.PathPrefix("/admin").Subrouter()
		admin.Use(adminOnly)
		audit.NewHandlers(s.deps.AuditSearcher).RegisterRoutes(admin)
	}
}

// wrap applies the cross-cutting middleware, outermost first
func (s *Server) wrap(h http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(s.deps.TrustProxy),
		httputil.LoggingMiddleware(s.deps.Logger),
		httputil.RecoveryMiddleware(s.deps.Logger),
		httputil.CORSMiddleware(s.deps.CORSOrigins),
		httputil.ContentTypeMiddleware,
	}
	if s.deps.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.deps.MaxBodyBytes))
	}
	return httputil.Chain(chain...)(h)
}

// Router exposes the route table, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
