package inventory

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aurea-commerce/aurea-inventory/internal/platform/httpx"
)

func newTestRouter(t *testing.T) (*chi.Mux, *memoryRepo, *Service) {
	t.Helper()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	handler := NewHandler(nil, svc, NewQuery(repo, nil))
	r := chi.NewRouter()
	r.Route("/api/inventory", handler.MountRoutes)
	return r, repo, svc
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Meta  *httpx.Meta      `json:"meta"`
	Error *httpx.ErrorBody `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr, env
}

func createVariant(t *testing.T, router http.Handler, qty int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/", map[string]any{
		"variantId":   id.String(),
		"sku":         "TEE-" + id.String()[:8],
		"productName": "Classic Tee",
		"attributes":  map[string]string{"size": "M"},
		"quantity":    qty,
		"unitCost":    1500,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Nil(t, env.Error)
	return id
}

func TestHandlerCreateStock(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 25)

	rr, env := doRequest(t, router, http.MethodGet, "/api/inventory/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var view stockView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, id.String(), view.VariantID)
	require.EqualValues(t, 25, view.QuantityOnHand)
	require.EqualValues(t, 25, view.AvailableStock)
}

func TestHandlerCreateStockValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/", map[string]any{
		"variantId": "not-a-uuid",
		"sku":       "TEE-X",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	require.Equal(t, httpx.CodeValidation, env.Error.Code)
}

func TestHandlerAdjustReasonRequired(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)

	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/"+id.String()+"/adjust", map[string]any{
		"quantityDelta": -2,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, httpx.CodeReasonRequired, env.Error.Code)
}

func TestHandlerAdjustWouldGoNegative(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)

	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/"+id.String()+"/adjust", map[string]any{
		"quantityDelta": -15,
		"reason":        "stocktake",
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, httpx.CodeWouldGoNegative, env.Error.Code)
}

func TestHandlerImportCostWarning(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)

	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/"+id.String()+"/import", map[string]any{
		"quantity":    5,
		"importPrice": 4500,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, env.Error)

	var view mutationResultView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.CostWarning)
	require.EqualValues(t, 1500, view.CostWarning.LastKnownCost)
	require.EqualValues(t, 15, view.Stock.QuantityOnHand)
}

func TestHandlerImportPriceRequired(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)

	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/"+id.String()+"/import", map[string]any{
		"quantity": 5,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, httpx.CodeImportPriceRequired, env.Error.Code)
}

func TestHandlerVariantNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr, env := doRequest(t, router, http.MethodGet, "/api/inventory/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, httpx.CodeNotFound, env.Error.Code)

	rr, env = doRequest(t, router, http.MethodGet, "/api/inventory/banana", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, httpx.CodeValidation, env.Error.Code)
}

func TestHandlerReservationFlow(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)
	base := "/api/inventory/" + id.String()

	rr, env := doRequest(t, router, http.MethodPost, base+"/reserve", map[string]any{
		"orderRef": "ORD-1",
		"quantity": 8,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var view mutationResultView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.EqualValues(t, 2, view.Stock.AvailableStock)

	rr, env = doRequest(t, router, http.MethodPost, base+"/reserve", map[string]any{
		"orderRef": "ORD-2",
		"quantity": 5,
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, httpx.CodeInsufficientStock, env.Error.Code)

	rr, env = doRequest(t, router, http.MethodPost, base+"/confirm", map[string]any{
		"orderRef": "ORD-1",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.EqualValues(t, 2, view.Stock.QuantityOnHand)
	require.EqualValues(t, 0, view.Stock.QuantityReserved)

	rr, env = doRequest(t, router, http.MethodPost, base+"/release", map[string]any{
		"orderRef": "ORD-1",
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, httpx.CodeAlreadyConfirmed, env.Error.Code)
}

func TestHandlerReleaseRetryIsNoOp(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)
	base := "/api/inventory/" + id.String()

	_, _ = doRequest(t, router, http.MethodPost, base+"/reserve", map[string]any{"orderRef": "ORD-1", "quantity": 3})

	rr, _ := doRequest(t, router, http.MethodPost, base+"/release", map[string]any{"orderRef": "ORD-1"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env := doRequest(t, router, http.MethodPost, base+"/release", map[string]any{"orderRef": "ORD-1"})
	require.Equal(t, http.StatusOK, rr.Code)
	var view mutationResultView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Nil(t, view.Transaction)
}

func TestHandlerHistoryAndReconcile(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)
	base := "/api/inventory/" + id.String()

	_, _ = doRequest(t, router, http.MethodPost, base+"/import", map[string]any{"quantity": 5, "importPrice": 1500})

	rr, env := doRequest(t, router, http.MethodGet, base+"/transactions?page=1&size=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Meta)
	require.Equal(t, 2, env.Meta.TotalElements)

	var txns []transactionView
	require.NoError(t, json.Unmarshal(env.Data, &txns))
	require.Len(t, txns, 2)
	require.Equal(t, "IMPORT", txns[0].Type)
	require.Equal(t, "OPENING_BALANCE", txns[1].Type)

	rr, env = doRequest(t, router, http.MethodGet, base+"/reconcile", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec reconcileView
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	require.True(t, rec.Consistent)
	require.EqualValues(t, 15, rec.RecordOnHand)
}

func TestHandlerListAndArchive(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 3)
	_ = createVariant(t, router, 50)

	rr, env := doRequest(t, router, http.MethodGet, "/api/inventory/?lowStockBelow=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var views []stockView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	require.Equal(t, id.String(), views[0].VariantID)

	rr, env = doRequest(t, router, http.MethodDelete, "/api/inventory/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var archived stockView
	require.NoError(t, json.Unmarshal(env.Data, &archived))
	require.True(t, archived.Archived)

	rr, env = doRequest(t, router, http.MethodGet, "/api/inventory/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
}

func TestHandlerDuplicateRequestRejected(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(nil, repo, nil, idem, nil, nil, nil, ServiceConfig{})
	handler := NewHandler(nil, svc, NewQuery(repo, nil))
	router := chi.NewRouter()
	router.Route("/api/inventory", handler.MountRoutes)
	id := createVariant(t, router, 10)

	send := func(key string) (*httptest.ResponseRecorder, envelope) {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{
			"quantityDelta": 2,
			"reason":        "recount",
		}))
		req := httptest.NewRequest(http.MethodPost, "/api/inventory/"+id.String()+"/adjust", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		var env envelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		return rr, env
	}

	rr, env := send("order-42")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, env.Error)
	ledgerLen := len(repo.txns)

	rr, env = send("order-42")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, httpx.CodeDuplicateRequest, env.Error.Code)
	require.Len(t, repo.txns, ledgerLen)
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	router, _, _ := newTestRouter(t)
	id := createVariant(t, router, 10)

	rr, env := doRequest(t, router, http.MethodPost, "/api/inventory/"+id.String()+"/adjust", map[string]any{
		"quantityDelta": 1,
		"reason":        "r",
		"warehouse":     "main",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, httpx.CodeValidation, env.Error.Code)
}
