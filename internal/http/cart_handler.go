package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/cart"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

type CartHandler struct {
	carts   repository.CartStore
	catalog repository.CatalogStore
	timeout time.Duration
}

func NewCartHandler(carts repository.CartStore, catalog repository.CatalogStore, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		timeout: timeout,
	}
}

type AddLineRequestDTO struct {
	ItemName  string                    `json:"item_name"`
	Quantity  int                       `json:"quantity"`
	Variants  []domain.VariantSelection `json:"variants"`
	LineTotal string                    `json:"line_total,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SetBuyerRequestDTO struct {
	BuyerName string `json:"buyer_name"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	current, err := h.loadCart(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, current)
}

func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	lineTotal, err := h.resolveLineTotal(ctx, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	line := domain.CartLine{
		ID:        uuid.NewString(),
		ItemName:  req.ItemName,
		Quantity:  req.Quantity,
		Variants:  req.Variants,
		LineTotal: lineTotal,
	}

	current, err := h.loadCart(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	next, err := cart.AddLine(current, line)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.carts.SaveCart(ctx, registerIDFromContext(r.Context()), next); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, next)
}

// resolveLineTotal takes the explicit total when the request carries
// one (custom-priced lines), otherwise derives it from the catalog.
func (h *CartHandler) resolveLineTotal(ctx context.Context, req AddLineRequestDTO) (decimal.Decimal, error) {
	if req.LineTotal != "" {
		total, err := decimal.NewFromString(req.LineTotal)
		if err != nil {
			return decimal.Zero, domain.ErrInvalidPrice
		}
		return total, nil
	}

	items, err := h.catalog.CatalogItems(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, item := range items {
		if item.Name == req.ItemName {
			return item.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))), nil
		}
	}
	return decimal.Zero, domain.ErrNotFound
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "line_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	current, err := h.loadCart(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	next, err := cart.UpdateQuantity(current, lineID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.carts.SaveCart(ctx, registerIDFromContext(r.Context()), next); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, next)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "line_id")

	current, err := h.loadCart(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	line, err := cart.LineByID(current, lineID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	next, err := cart.RemoveLine(current, line)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.carts.SaveCart(ctx, registerIDFromContext(r.Context()), next); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, next)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	current, err := h.loadCart(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	next := cart.Clear(current)
	if err := h.carts.SaveCart(ctx, registerIDFromContext(r.Context()), next); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, next)
}

func (h *CartHandler) SetBuyer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetBuyerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	current, err := h.loadCart(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	current.BuyerName = req.BuyerName
	if err := h.carts.SaveCart(ctx, registerIDFromContext(r.Context()), current); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, current)
}

// loadCart returns the persisted working cart, or a fresh empty cart
// for a register that has none yet.
func (h *CartHandler) loadCart(ctx context.Context) (domain.Receipt, error) {
	current, err := h.carts.GetCart(ctx, registerIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return cart.NewCart(), nil
		}
		return domain.Receipt{}, err
	}
	return current, nil
}
