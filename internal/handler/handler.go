// Package handler is the HTTP surface: tenant provisioning, public tenant
// lookup and sign-in.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tenant-booking-api/internal/auth"
	"tenant-booking-api/internal/middleware"
	"tenant-booking-api/internal/model"
	"tenant-booking-api/internal/provision"
)

type Provisioner interface {
	Authorize(ctx context.Context, token string) (*auth.Claims, error)
	Provision(ctx context.Context, req provision.Request, v provision.Variant) (*model.Tenant, error)
}

// TenantReader serves public lookups. Invalidate is called whenever a
// provisioning request may have written the tenant.
type TenantReader interface {
	GetTenant(ctx context.Context, slug string) (*model.Tenant, error)
	Invalidate(slug string)
}

type SignIner interface {
	SignIn(ctx context.Context, email, password string) (string, *model.Principal, error)
}

type Handler struct {
	provisioner Provisioner
	tenants     TenantReader
	identity    SignIner
	log         *zap.Logger
}

func New(p Provisioner, tenants TenantReader, identity SignIner, log *zap.Logger) *Handler {
	return &Handler{provisioner: p, tenants: tenants, identity: identity, log: log}
}

// Routes mounts every endpoint. rl throttles the unauthenticated write
// endpoints per client IP; extra wraps the whole router (tracing).
func (h *Handler) Routes(rl *middleware.RateLimiter, extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(extra...)
	// set before Route so the /api subrouter inherits it
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.With(middleware.Auth(h.provisioner)).Post("/tenants", h.CreateTenant)
		r.With(middleware.RateLimitHTTP(rl)).Post("/signup", h.Signup)
		r.With(middleware.RateLimitHTTP(rl)).Post("/auth/login", h.Login)
		r.Get("/tenants/{slug}", h.GetTenant)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
