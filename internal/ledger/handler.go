package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane/stocklane/internal/observability"
	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// NegativePostingAuthorizer reports whether the actor may post sales that
// drive stock below zero. Route-level permissions cannot express this since
// it depends on a request body field.
type NegativePostingAuthorizer interface {
	CanPostNegative(ctx context.Context, userID int64) (bool, error)
}

// Handler exposes the posting and inquiry endpoints.
type Handler struct {
	service      *Service
	logger       *slog.Logger
	metrics      *observability.Metrics
	negativeAuth NegativePostingAuthorizer
	validate     *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger, metrics *observability.Metrics, negativeAuth NegativePostingAuthorizer) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		metrics:      metrics,
		negativeAuth: negativeAuth,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountPosting registers the posting route. Kept separate from the read
// routes so the router can guard them with different permissions.
func (h *Handler) MountPosting(r chi.Router) {
	r.Post("/transactions", h.post)
}

// MountReads registers the inquiry routes.
func (h *Handler) MountReads(r chi.Router) {
	r.Get("/transactions", h.list)
	r.Get("/transactions/{id}", h.get)
	r.Get("/stock-card", h.stockCard)
	r.Get("/stocks", h.stocks)
}

type lineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type postRequest struct {
	Type          string        `json:"type" validate:"required,oneof=Purchase Sale"`
	PartnerID     int64         `json:"partner_id" validate:"omitempty,gt=0"`
	WarehouseID   int64         `json:"warehouse_id" validate:"required,gt=0"`
	Reference     string        `json:"reference" validate:"omitempty,max=64"`
	Note          string        `json:"note" validate:"omitempty,max=1024"`
	AllowNegative bool          `json:"allow_negative"`
	Items         []lineRequest `json:"items" validate:"required,min=1,dive"`
}

type itemResponse struct {
	ID         int64    `json:"id"`
	ProductID  int64    `json:"product_id"`
	Quantity   int64    `json:"quantity"`
	UnitPrice  float64  `json:"unit_price"`
	TotalPrice float64  `json:"total_price"`
	CostUsed   *float64 `json:"cost_used,omitempty"`
	Profit     *float64 `json:"profit,omitempty"`
}

type transactionResponse struct {
	ID          int64          `json:"id"`
	Reference   string         `json:"reference"`
	Type        string         `json:"type"`
	PartnerID   int64          `json:"partner_id,omitempty"`
	WarehouseID int64          `json:"warehouse_id"`
	Note        string         `json:"note,omitempty"`
	Locked      bool           `json:"locked"`
	PostedAt    time.Time      `json:"posted_at"`
	Items       []itemResponse `json:"items,omitempty"`
}

func toResponse(tx Transaction, items []TransactionItem) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Reference:   tx.Reference,
		Type:        string(tx.Type),
		PartnerID:   tx.PartnerID,
		WarehouseID: tx.WarehouseID,
		Note:        tx.Note,
		Locked:      tx.Locked,
		PostedAt:    tx.PostedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			CostUsed:   item.CostUsed,
			Profit:     item.Profit,
		})
	}
	return resp
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: body must be valid JSON", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	if req.AllowNegative {
		allowed, err := h.canPostNegative(r.Context(), ident.UserID)
		if err != nil {
			h.metrics.ObservePosting(req.Type, "failed")
			h.logger.Error("negative posting permission check failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Posting Failed", ErrPostFailed.Error())
			return
		}
		if !allowed {
			h.metrics.ObservePosting(req.Type, "rejected")
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "posting into negative stock requires elevated permission")
			return
		}
	}
	input := PostInput{
		Type:          TransactionType(req.Type),
		PartnerID:     req.PartnerID,
		WarehouseID:   req.WarehouseID,
		ActorID:       ident.UserID,
		OwnerID:       ident.OwnerID,
		Reference:     req.Reference,
		Note:          req.Note,
		AllowNegative: req.AllowNegative,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, LineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	posted, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.respondPostError(w, r, req.Type, err)
		return
	}
	h.metrics.ObservePosting(req.Type, "posted")
	httpx.JSON(w, http.StatusCreated, toResponse(posted.Transaction, posted.Items))
}

// canPostNegative defaults to deny when no authorizer is wired.
func (h *Handler) canPostNegative(ctx context.Context, userID int64) (bool, error) {
	if h.negativeAuth == nil {
		return false, nil
	}
	return h.negativeAuth.CanPostNegative(ctx, userID)
}

// respondPostError classifies posting failures. Shortages get a 422 with the
// per-product breakdown; validation errors get 400; anything unexpected is
// logged and collapses to an opaque 500.
func (h *Handler) respondPostError(w http.ResponseWriter, r *http.Request, txType string, err error) {
	var shortage *ShortageError
	switch {
	case errors.As(err, &shortage):
		h.metrics.ObservePosting(txType, "shortage")
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":     "Insufficient Stock",
			"status":    http.StatusUnprocessableEntity,
			"detail":    shortage.Error(),
			"shortages": shortageRows(shortage),
		})
	case errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidUnitPrice),
		errors.Is(err, ErrNoItems):
		h.metrics.ObservePosting(txType, "rejected")
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrProductNotFound):
		h.metrics.ObservePosting(txType, "rejected")
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		h.metrics.ObservePosting(txType, "duplicate")
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a transaction with this reference was already posted")
	default:
		h.metrics.ObservePosting(txType, "failed")
		h.logger.Error("transaction posting failed",
			slog.String("type", txType),
			slog.Any("error", err),
		)
		httpx.Problem(w, http.StatusInternalServerError, "Posting Failed", ErrPostFailed.Error())
	}
}

type shortageRow struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

func shortageRows(err *ShortageError) []shortageRow {
	rows := make([]shortageRow, 0, len(err.Shortages))
	for _, s := range err.Shortages {
		rows = append(rows, shortageRow{
			ProductID: s.ProductID,
			Name:      s.Name,
			Available: s.Available,
			Requested: s.Requested,
		})
	}
	return rows
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	txs, err := h.service.ListTransactions(r.Context(), ident.OwnerID, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toResponse(tx, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid id", httpx.ErrValidation))
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	tx, items, err := h.service.GetTransaction(r.Context(), ident.OwnerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(tx, items))
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMovementFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) stocks(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: warehouse_id is required", httpx.ErrValidation))
		return
	}
	var productIDs []int64
	for _, raw := range r.URL.Query()["product_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, fmt.Errorf("%w: invalid product_id", httpx.ErrValidation))
			return
		}
		productIDs = append(productIDs, id)
	}
	quantities, err := h.service.OnHand(r.Context(), warehouseID, productIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stocks": quantities})
}

func parseMovementFilter(r *http.Request) (MovementFilter, error) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		return MovementFilter{}, fmt.Errorf("%w: product_id is required", httpx.ErrValidation)
	}
	warehouseID, err := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		return MovementFilter{}, fmt.Errorf("%w: warehouse_id is required", httpx.ErrValidation)
	}
	filter := MovementFilter{ProductID: productID, WarehouseID: warehouseID, Limit: 200}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("%w: from must be YYYY-MM-DD", httpx.ErrValidation)
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("%w: to must be YYYY-MM-DD", httpx.ErrValidation)
		}
		filter.To = to.Add(24 * time.Hour)
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 1000 {
			filter.Limit = parsed
		}
	}
	return filter, nil
}
