package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stocklane/stocklane/internal/auth"
	"github.com/stocklane/stocklane/internal/catalog"
	"github.com/stocklane/stocklane/internal/ledger"
	"github.com/stocklane/stocklane/internal/observability"
	"github.com/stocklane/stocklane/internal/partners"
	"github.com/stocklane/stocklane/internal/rbac"
	"github.com/stocklane/stocklane/internal/reports"
	"github.com/stocklane/stocklane/internal/settings"
	"github.com/stocklane/stocklane/internal/shared"
	"github.com/stocklane/stocklane/internal/users"
	"github.com/stocklane/stocklane/internal/warehouses"
	"github.com/stocklane/stocklane/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	CatalogHandler   *catalog.Handler
	WarehouseHandler *warehouses.Handler
	PartnerHandler   *partners.Handler
	SettingsHandler  *settings.Handler
	LedgerHandler    *ledger.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler

	RBAC *rbac.Middleware
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(params.AuthHandler.ResolveIdentity)
		params.AuthHandler.Mount(r)
	})

	// Everything below requires a logged-in user; route groups add the
	// capability checks on top.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthHandler.RequireUser)

		r.Route("/users", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.PermUserManage))
			params.UsersHandler.Mount(r)
		})
		r.Route("/products", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.PermProductRead, rbac.PermProductWrite))
			params.CatalogHandler.Mount(r)
		})
		r.Route("/warehouses", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.PermWarehouseWrite, rbac.PermProductRead))
			params.WarehouseHandler.Mount(r)
		})
		r.Route("/partners", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.PermPartnerWrite, rbac.PermTransactionRead))
			params.PartnerHandler.Mount(r)
		})
		r.Route("/settings", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.PermSettingsManage))
			params.SettingsHandler.Mount(r)
		})
		r.Route("/ledger", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(params.RBAC.RequireAny(rbac.PermTransactionPost))
				params.LedgerHandler.MountPosting(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(params.RBAC.RequireAny(rbac.PermTransactionRead, rbac.PermTransactionPost))
				params.LedgerHandler.MountReads(r)
			})
		})
		r.Route("/reports", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.PermReportRead))
			params.ReportsHandler.Mount(r)
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
