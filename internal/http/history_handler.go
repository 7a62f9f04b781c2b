package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/history"
)

type HistoryHandler struct {
	service *history.Service
	timeout time.Duration
}

func NewHistoryHandler(service *history.Service, timeout time.Duration) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		timeout: timeout,
	}
}

func (h *HistoryHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		receipts []domain.Receipt
		err      error
	)
	if buyer := r.URL.Query().Get("buyer"); buyer != "" {
		receipts, err = h.service.ReceiptsByBuyer(ctx, buyer)
	} else {
		switch r.URL.Query().Get("view") {
		case "saved":
			receipts, err = h.service.SavedForLater(ctx)
		default:
			receipts, err = h.service.PurchaseHistory(ctx)
		}
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if receipts == nil {
		receipts = []domain.Receipt{}
	}
	respondJSON(w, http.StatusOK, receipts)
}

func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	revenue, err := h.service.TotalRevenue(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	count, err := h.service.ReceiptCount(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_revenue": revenue.StringFixed(2),
		"receipt_count": count,
	})
}

func (h *HistoryHandler) RemoveReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	receiptID := chi.URLParam(r, "receipt_id")
	if err := h.service.RemoveReceipt(ctx, domain.Receipt{ID: receiptID}); err != nil {
		respondDomainError(w, err)
		return
	}

	// Removal is idempotent: dismissing an absent receipt is a success.
	w.WriteHeader(http.StatusNoContent)
}
