package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/export"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/history"
)

type ExportHandler struct {
	service *history.Service
	timeout time.Duration
	now     func() time.Time
}

func NewExportHandler(service *history.Service, timeout time.Duration) *ExportHandler {
	return &ExportHandler{
		service: service,
		timeout: timeout,
		now:     time.Now,
	}
}

// Export renders the purchase history in the requested view and hands
// it back as a downloadable text document with a suggested filename.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	receipts, err := h.service.PurchaseHistory(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	view := r.URL.Query().Get("view")
	var document string
	switch view {
	case "", "combined":
		document, err = export.Combined(receipts)
	case "detailed":
		document, err = export.Detailed(receipts)
	case "by-item":
		document, err = export.ByItem(receipts)
	case "by-item-variants":
		document, err = export.ByItemWithVariants(receipts)
	case "by-item-per-variant":
		document, err = export.ByItemPerVariant(receipts)
	default:
		respondError(w, http.StatusBadRequest, "invalid_view", fmt.Sprintf("unknown export view %q", view))
		return
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("sales-report-%s.csv", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write([]byte(document)); err != nil {
		log.Printf("failed to write export: %v", err)
	}
}
