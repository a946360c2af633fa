package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes product catalog endpoints.
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
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
}

type createRequest struct {
	SKU                  string  `json:"sku" validate:"omitempty,max=64"`
	Name                 string  `json:"name" validate:"required,max=255"`
	Unit                 string  `json:"unit" validate:"omitempty,max=32"`
	DefaultPurchasePrice float64 `json:"default_purchase_price" validate:"gte=0"`
	DefaultSellPrice     float64 `json:"default_sell_price" validate:"gte=0"`
	LowStockThreshold    int64   `json:"low_stock_threshold" validate:"gte=0"`
}

type updateRequest struct {
	SKU                  *string  `json:"sku" validate:"omitempty,max=64"`
	Name                 *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Unit                 *string  `json:"unit" validate:"omitempty,max=32"`
	DefaultPurchasePrice *float64 `json:"default_purchase_price" validate:"omitempty,gte=0"`
	DefaultSellPrice     *float64 `json:"default_sell_price" validate:"omitempty,gte=0"`
	LowStockThreshold    *int64   `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	IsActive             *bool    `json:"is_active"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	filter := ListFilter{
		Search:     r.URL.Query().Get("q"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	out, err := h.service.List(r.Context(), ident.OwnerID, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: body must be valid JSON", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	product, err := h.service.Create(r.Context(), ident.OwnerID, ident.UserID, CreateInput{
		SKU:                  req.SKU,
		Name:                 req.Name,
		Unit:                 req.Unit,
		DefaultPurchasePrice: req.DefaultPurchasePrice,
		DefaultSellPrice:     req.DefaultSellPrice,
		LowStockThreshold:    req.LowStockThreshold,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	product, err := h.service.Get(r.Context(), ident.OwnerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
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
	product, err := h.service.Update(r.Context(), ident.OwnerID, ident.UserID, id, UpdateInput{
		SKU:                  req.SKU,
		Name:                 req.Name,
		Unit:                 req.Unit,
		DefaultPurchasePrice: req.DefaultPurchasePrice,
		DefaultSellPrice:     req.DefaultSellPrice,
		LowStockThreshold:    req.LowStockThreshold,
		IsActive:             req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), ident.OwnerID, ident.UserID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	}
	return id, nil
}
