package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/observability"
	"github.com/stocklane/stocklane/internal/shared"
)

type staticAuthorizer bool

func (a staticAuthorizer) CanPostNegative(ctx context.Context, userID int64) (bool, error) {
	return bool(a), nil
}

func testHandlerRouter(repo *memoryRepo, negativeAuth NegativePostingAuthorizer) http.Handler {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	h := NewHandler(newTestService(repo), logger, observability.NewMetrics(), negativeAuth)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: testActor, OwnerID: testOwner})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/ledger", func(r chi.Router) {
		h.MountPosting(r)
		h.MountReads(r)
	})
	return r
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPostTransactionEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 100, "Widget", 5)
	router := testHandlerRouter(repo, nil)

	body := `{"type":"Purchase","warehouse_id":10,"partner_id":20,"items":[{"product_id":100,"quantity":10,"unit_price":5}]}`
	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		ID     int64  `json:"id"`
		Type   string `json:"type"`
		Locked bool   `json:"locked"`
		Items  []struct {
			Quantity   int64   `json:"quantity"`
			TotalPrice float64 `json:"total_price"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Purchase", resp.Type)
	require.True(t, resp.Locked)
	require.Len(t, resp.Items, 1)
	require.InDelta(t, 50.0, resp.Items[0].TotalPrice, 1e-9)
}

func TestPostTransactionShortageReturns422(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 100, "Widget", 5)
	repo.setStock(100, testWarehouse, 2)
	router := testHandlerRouter(repo, nil)

	body := `{"type":"Sale","warehouse_id":10,"items":[{"product_id":100,"quantity":5,"unit_price":9}]}`
	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Detail    string `json:"detail"`
		Shortages []struct {
			ProductID int64 `json:"product_id"`
			Available int64 `json:"available"`
			Requested int64 `json:"requested"`
		} `json:"shortages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Detail, "Widget: available 2, requested 5")
	require.Len(t, resp.Shortages, 1)
	require.Equal(t, int64(100), resp.Shortages[0].ProductID)
}

func TestPostTransactionRejectsBadType(t *testing.T) {
	repo := newMemoryRepo()
	router := testHandlerRouter(repo, nil)

	body := `{"type":"Transfer","warehouse_id":10,"items":[{"product_id":100,"quantity":1,"unit_price":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllowNegativeRequiresPermission(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 100, "Widget", 5)
	repo.addLot(100, testWarehouse, 2, 4, time.Now())
	repo.setStock(100, testWarehouse, 2)

	body := `{"type":"Sale","warehouse_id":10,"allow_negative":true,"items":[{"product_id":100,"quantity":5,"unit_price":10}]}`

	denied := testHandlerRouter(repo, staticAuthorizer(false))
	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	denied.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, int64(2), repo.stockQty(100, testWarehouse))
	require.Empty(t, repo.transactions)

	granted := testHandlerRouter(repo, staticAuthorizer(true))
	req = httptest.NewRequest(http.MethodPost, "/ledger/transactions", strings.NewReader(body))
	rec = httptest.NewRecorder()
	granted.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, int64(-3), repo.stockQty(100, testWarehouse))
	require.Len(t, repo.transactions, 1)
}

func TestAllowNegativeDeniedWithoutAuthorizer(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 100, "Widget", 5)
	repo.setStock(100, testWarehouse, 2)
	router := testHandlerRouter(repo, nil)

	body := `{"type":"Sale","warehouse_id":10,"allow_negative":true,"items":[{"product_id":100,"quantity":1,"unit_price":10}]}`
	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, repo.transactions)
}

func TestGetTransactionEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 100, "Widget", 5)
	svc := newTestService(repo)
	posted, err := svc.Post(context.Background(), purchase(LineInput{ProductID: 100, Quantity: 3, UnitPrice: 4}))
	require.NoError(t, err)
	router := testHandlerRouter(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/ledger/transactions/"+strconv.FormatInt(posted.Transaction.ID, 10), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ledger/transactions/999999", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockCardEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 100, "Widget", 5)
	svc := newTestService(repo)
	_, err := svc.Post(context.Background(), purchase(LineInput{ProductID: 100, Quantity: 3, UnitPrice: 4}))
	require.NoError(t, err)
	router := testHandlerRouter(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/ledger/stock-card?product_id=100&warehouse_id=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Movements []struct {
			Direction string `json:"Direction"`
			Quantity  int64  `json:"Quantity"`
		} `json:"movements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Movements, 1)

	req = httptest.NewRequest(http.MethodGet, "/ledger/stock-card?product_id=100", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
