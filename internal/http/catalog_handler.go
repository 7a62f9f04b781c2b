package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

type CatalogHandler struct {
	catalog repository.CatalogStore
	timeout time.Duration
}

func NewCatalogHandler(catalog repository.CatalogStore, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.catalog.CatalogItems(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if items == nil {
		items = []domain.CatalogItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

// ReplaceItems swaps the whole catalog. The store never sees partial
// updates; the admin screen always submits the full list.
func (h *CatalogHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var items []domain.CatalogItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.catalog.ReplaceCatalogItems(ctx, items); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}
