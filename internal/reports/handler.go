package reports

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes report endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registers routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/sales", h.salesSummary)
	r.Get("/low-stock", h.lowStock)
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	summary, err := h.service.SalesSummary(r.Context(), ident.OwnerID, period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	items, err := h.service.LowStock(r.Context(), ident.OwnerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// parsePeriod reads from/to query params in YYYY-MM-DD form. The "to" day is
// inclusive.
func parsePeriod(r *http.Request) (Period, error) {
	var period Period
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Period{}, fmt.Errorf("%w: from must be YYYY-MM-DD", httpx.ErrValidation)
		}
		period.From = from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Period{}, fmt.Errorf("%w: to must be YYYY-MM-DD", httpx.ErrValidation)
		}
		period.To = to.Add(24 * time.Hour)
	}
	if !period.From.IsZero() && !period.To.IsZero() && period.To.Before(period.From) {
		return Period{}, fmt.Errorf("%w: to must not precede from", httpx.ErrValidation)
	}
	return period, nil
}
