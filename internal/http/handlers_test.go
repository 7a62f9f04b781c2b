package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/cache"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/checkout"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/history"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

// newTestServer wires the handlers against in-memory stores the same
// way cmd/posd does, minus the infra-only middleware.
func newTestServer(t *testing.T) (*chi.Mux, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	receiptCache := cache.NewMemoryCache()
	processor := checkout.NewProcessor(store, receiptCache)
	historyService := history.NewService(store, receiptCache)

	timeout := 5 * time.Second
	cartHandler := NewCartHandler(store, store, timeout)
	checkoutHandler := NewCheckoutHandler(processor, store, timeout)
	historyHandler := NewHistoryHandler(historyService, timeout)
	exportHandler := NewExportHandler(historyService, timeout)
	catalogHandler := NewCatalogHandler(store, timeout)

	r := chi.NewRouter()
	r.Use(RegisterMiddleware)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/lines", cartHandler.AddLine)
			r.Put("/lines/{line_id}", cartHandler.UpdateQuantity)
			r.Delete("/lines/{line_id}", cartHandler.RemoveLine)
			r.Put("/buyer", cartHandler.SetBuyer)
		})
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Post("/checkout/save-for-later", checkoutHandler.SaveForLater)
		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", historyHandler.ListReceipts)
			r.Get("/stats", historyHandler.Stats)
			r.Delete("/{receipt_id}", historyHandler.RemoveReceipt)
		})
		r.Get("/export", exportHandler.Export)
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", catalogHandler.ListItems)
			r.Put("/", catalogHandler.ReplaceItems)
		})
	})

	return r, store
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeReceipt(t *testing.T, rec *httptest.ResponseRecorder) domain.Receipt {
	t.Helper()

	var receipt domain.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	return receipt
}

func TestGetCart_EmptyRegisterReturnsFreshCart(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeReceipt(t, rec)
	assert.Equal(t, domain.DefaultBuyerName, got.BuyerName)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Empty(t, got.Lines)
}

func TestAddLine_WithExplicitTotal(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":2,"line_total":"40.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeReceipt(t, rec)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Bible", got.Lines[0].ItemName)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, got.Lines[0].LineTotal.Equal(decimal.RequireFromString("40.00")))
}

func TestAddLine_DerivesTotalFromCatalog(t *testing.T) {
	router, store := newTestServer(t)

	err := store.ReplaceCatalogItems(context.Background(), []domain.CatalogItem{
		{Name: "Pen", UnitPrice: decimal.RequireFromString("2.50")},
	})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Pen","quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeReceipt(t, rec)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].LineTotal.Equal(decimal.RequireFromString("10.00")))
}

func TestAddLine_UnknownItemWithoutTotal(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Ghost","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)
}

func TestAddLine_InvalidQuantity(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":0,"line_total":"0.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_quantity", resp.Code)
}

func TestAddLine_MergesEqualLines(t *testing.T) {
	router, _ := newTestServer(t)

	body := `{"item_name":"Bible","quantity":2,"line_total":"40.00"}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/lines", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeReceipt(t, rec)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 4, got.Lines[0].Quantity)
	assert.True(t, got.Lines[0].LineTotal.Equal(decimal.RequireFromString("80.00")))
}

func TestUpdateQuantity_RecomputesTotal(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":2,"line_total":"40.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID := decodeReceipt(t, rec).Lines[0].ID

	rec = doRequest(t, router, http.MethodPut, "/api/v1/cart/lines/"+lineID,
		`{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeReceipt(t, rec)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 5, got.Lines[0].Quantity)
	assert.True(t, got.Lines[0].LineTotal.Equal(decimal.RequireFromString("100.00")))
}

func TestUpdateQuantity_UnknownLine(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/cart/lines/nope",
		`{"quantity":3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveLine_ThenCartIsEmpty(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID := decodeReceipt(t, rec).Lines[0].ID

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/cart/lines/"+lineID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeReceipt(t, rec).Lines)
}

func TestClearCart_PreservesBuyer(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/cart/buyer",
		`{"buyer_name":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeReceipt(t, rec)
	assert.Equal(t, "Alice", got.BuyerName)
	assert.Empty(t, got.Lines)
}

func TestRegisterHeader_IsolatesCarts(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",
		strings.NewReader(`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`))
	req.Header.Set("X-Register-ID", "register-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The default register never saw that line.
	rec2 := doRequest(t, router, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Empty(t, decodeReceipt(t, rec2).Lines)
}

func TestCheckout_PersistsReceiptAndResetsCart(t *testing.T) {
	router, store := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":2,"line_total":"40.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout",
		`{"buyer_name":"Alice","payment_method":"VENMO"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	receipt := decodeReceipt(t, rec)
	assert.Equal(t, "Alice", receipt.BuyerName)
	assert.Equal(t, domain.StatusCheckedOut, receipt.Status)
	assert.Equal(t, domain.PaymentVenmo, receipt.PaymentMethod)
	assert.NotEmpty(t, receipt.ID)

	persisted, err := store.Receipts(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, receipt.ID, persisted[0].ID)

	// Working cart is reset to a fresh anonymous cart.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeReceipt(t, rec)
	assert.Equal(t, domain.DefaultBuyerName, got.BuyerName)
	assert.Empty(t, got.Lines)
}

func TestCheckout_EmptyCart(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/checkout",
		`{"buyer_name":"Alice"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestCheckout_BlankBuyer(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout",
		`{"buyer_name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_name", resp.Code)

	// The cart survives the failed checkout.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeReceipt(t, rec).Lines, 1)
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/checkout",
		`{"buyer_name":"Alice","payment_method":"BARTER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_payment_method", resp.Code)
}

func TestSaveForLater_MarksReceipt(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout/save-for-later",
		`{"buyer_name":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	receipt := decodeReceipt(t, rec)
	assert.Equal(t, domain.StatusSaveForLater, receipt.Status)
	assert.Equal(t, domain.PaymentCash, receipt.PaymentMethod)
}

func TestListReceipts_FiltersAndViews(t *testing.T) {
	router, _ := newTestServer(t)

	addAndCheckout := func(buyer, path string) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
			`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = doRequest(t, router, http.MethodPost, path,
			`{"buyer_name":"`+buyer+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	addAndCheckout("Alice", "/api/v1/checkout")
	addAndCheckout("Bob", "/api/v1/checkout/save-for-later")

	var listed []domain.Receipt

	rec := doRequest(t, router, http.MethodGet, "/api/v1/receipts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Alice", listed[0].BuyerName)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts?view=saved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Bob", listed[0].BuyerName)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts?buyer=ali", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Alice", listed[0].BuyerName)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts?buyer=zzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestStats_CountsAllRevenueCheckedOutOnly(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"100.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout", `{"buyer_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Pen","quantity":1,"line_total":"50.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout/save-for-later", `{"buyer_name":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/receipts/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		TotalRevenue string `json:"total_revenue"`
		ReceiptCount int    `json:"receipt_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "100.00", stats.TotalRevenue)
	assert.Equal(t, 2, stats.ReceiptCount)
}

func TestRemoveReceipt_IsIdempotent(t *testing.T) {
	router, store := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout", `{"buyer_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	receiptID := decodeReceipt(t, rec).ID

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/receipts/"+receiptID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	persisted, err := store.Receipts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/receipts/"+receiptID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExport_DefaultCombinedDocument(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/lines",
		`{"item_name":"Bible","quantity":1,"line_total":"20.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/checkout", `{"buyer_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales-report-")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "=== DETAILED SALES ===")
	assert.Contains(t, rec.Body.String(), "=== SALES BY ITEM ===")
}

func TestExport_SingleView(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/export?view=by-item", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item,Total Quantity,Total Price")
	assert.NotContains(t, rec.Body.String(), "===")
}

func TestExport_UnknownView(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/export?view=pivot", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_view", resp.Code)
}

func TestCatalog_ReplaceAndList(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/catalog",
		`[{"name":"Bible","unit_price":"20","variants":[{"name":"Version","values":["KJV","NIV"]}]}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []domain.CatalogItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Bible", items[0].Name)
	require.Len(t, items[0].Variants, 1)
	assert.Equal(t, []string{"KJV", "NIV"}, items[0].Variants[0].Values)
}
