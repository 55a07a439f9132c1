// ABOUTME: HTTP server struct, constructor, and route wiring for ComplyHub.
// ABOUTME: Every hierarchy route passes through the permission middleware.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/config"
	"github.com/complyhub/complyhub/internal/scan"
	"github.com/complyhub/complyhub/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       *store.Store
	authz       *authz.Service
	pipeline    *scan.Pipeline
	cfg         *config.Config
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server.
func NewServer(s *store.Store, svc *authz.Service, pipeline *scan.Pipeline, cfg *config.Config) *Server {
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 60 requests per minute, burst of 30.
	rl := newIPRateLimiter(rate.Limit(1), 30, evictTTL)
	return &Server{
		store:       s,
		authz:       svc,
		pipeline:    pipeline,
		cfg:         cfg,
		rateLimiter: rl,
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 1 MB global body limit — protect against OOM from large request bodies.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 ────────────────────────────────────────────────────────────────
	apiRouter := chi.NewRouter()
	apiRouter.Use(srv.rateLimit())
	apiRouter.Use(srv.RequireAuthenticated())

	apiRouter.Route("/orgs", func(r chi.Router) {
		r.Get("/", srv.listOrgsHandler)
		r.Post("/", srv.createOrgHandler) // superusers only

		r.Route("/{org_id}", func(r chi.Router) {
			r.With(srv.RequireOrganizationPermission(authz.OrgRead)).Get("/", srv.getOrgHandler)
			r.With(srv.RequireOrganizationPermission(authz.OrgRead)).Get("/permissions", srv.effectivePermissionsHandler)
			r.With(srv.RequireOrganizationPermission(authz.OrgWrite)).Patch("/", srv.updateOrgHandler)
			r.With(srv.RequireOrganizationPermission(authz.OrgDelete)).Delete("/", srv.deleteOrgHandler)

			r.Route("/roles", func(r chi.Router) {
				r.Use(srv.RequireOrganizationPermission(authz.OrgManageGroups))
				r.Get("/", srv.listRolesHandler)
				r.Put("/{user_id}", srv.assignRoleHandler)
				r.Delete("/{user_id}", srv.removeRoleHandler)
			})

			r.Get("/products", srv.listProductsHandler)
			r.With(srv.RequireOrganizationPermission(authz.OrgCreateProduct)).Post("/products", srv.createProductHandler)
		})
	})

	apiRouter.Route("/products/{product_id}", func(r chi.Router) {
		r.With(srv.RequireProductPermission(authz.ProductRead)).Get("/", srv.getProductHandler)
		r.With(srv.RequireProductPermission(authz.ProductRead)).Get("/permissions", srv.effectivePermissionsHandler)
		r.With(srv.RequireProductPermission(authz.ProductWrite)).Patch("/", srv.updateProductHandler)
		r.With(srv.RequireProductPermission(authz.ProductDelete)).Delete("/", srv.deleteProductHandler)

		r.Route("/roles", func(r chi.Router) {
			r.Use(srv.RequireProductPermission(authz.ProductManageGroups))
			r.Get("/", srv.listRolesHandler)
			r.Put("/{user_id}", srv.assignRoleHandler)
			r.Delete("/{user_id}", srv.removeRoleHandler)
		})

		r.Get("/repositories", srv.listRepositoriesHandler)
		r.With(srv.RequireProductPermission(authz.ProductCreateRepository)).Post("/repositories", srv.createRepositoryHandler)
	})

	apiRouter.Route("/repositories/{repository_id}", func(r chi.Router) {
		r.With(srv.RequireRepositoryPermission(authz.RepoRead)).Get("/", srv.getRepositoryHandler)
		r.With(srv.RequireRepositoryPermission(authz.RepoRead)).Get("/permissions", srv.effectivePermissionsHandler)
		r.With(srv.RequireRepositoryPermission(authz.RepoWrite)).Patch("/", srv.updateRepositoryHandler)
		r.With(srv.RequireRepositoryPermission(authz.RepoDelete)).Delete("/", srv.deleteRepositoryHandler)

		r.Route("/roles", func(r chi.Router) {
			r.Use(srv.RequireRepositoryPermission(authz.RepoManageGroups))
			r.Get("/", srv.listRolesHandler)
			r.Put("/{user_id}", srv.assignRoleHandler)
			r.Delete("/{user_id}", srv.removeRoleHandler)
		})

		r.Route("/scans", func(r chi.Router) {
			r.With(srv.RequireRepositoryPermission(authz.RepoTriggerScan)).Post("/", srv.triggerScanHandler)
			r.With(srv.RequireRepositoryPermission(authz.RepoReadScans)).Get("/", srv.listScansHandler)
			r.With(srv.RequireRepositoryPermission(authz.RepoReadScans)).Get("/{run_id}", srv.getScanHandler)
		})
	})

	r.Mount("/api/v1", apiRouter)

	return r
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
		}
	}
}
