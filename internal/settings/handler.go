package settings

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes organization settings endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Mount registers routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.get)
	r.Patch("/", h.update)
}

type updateRequest struct {
	Currency       *string `json:"currency" validate:"omitempty,len=3"`
	Locale         *string `json:"locale" validate:"omitempty,max=35"`
	LowStockAlerts *bool   `json:"low_stock_alerts"`
	NotifyEmail    *string `json:"notify_email" validate:"omitempty,email"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	out, err := h.service.Get(r.Context(), ident.OwnerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: body must be valid JSON", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	out, err := h.service.Update(r.Context(), ident.OwnerID, UpdateInput{
		Currency:       req.Currency,
		Locale:         req.Locale,
		LowStockAlerts: req.LowStockAlerts,
		NotifyEmail:    req.NotifyEmail,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
