package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/cart"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/checkout"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

type CheckoutHandler struct {
	processor *checkout.Processor
	carts     repository.CartStore
	timeout   time.Duration
}

func NewCheckoutHandler(processor *checkout.Processor, carts repository.CartStore, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		processor: processor,
		carts:     carts,
		timeout:   timeout,
	}
}

type CheckoutRequestDTO struct {
	BuyerName     string `json:"buyer_name"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, domain.StatusCheckedOut)
}

func (h *CheckoutHandler) SaveForLater(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, domain.StatusSaveForLater)
}

func (h *CheckoutHandler) commit(w http.ResponseWriter, r *http.Request, status domain.ReceiptStatus) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	payment := domain.PaymentCash
	if req.PaymentMethod != "" {
		parsed, err := domain.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
			return
		}
		payment = parsed
	}

	registerID := registerIDFromContext(r.Context())
	working, err := h.carts.GetCart(ctx, registerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondDomainError(w, domain.ErrEmptyCart)
			return
		}
		respondDomainError(w, err)
		return
	}

	receipt, err := h.processor.ProcessCheckout(ctx, working, req.BuyerName, status, payment)
	if err != nil {
		// The cart is kept as-is so the cashier can fix and retry.
		respondDomainError(w, err)
		return
	}

	// The receipt is committed; reset the working cart. A failure here
	// only leaves a stale cart behind, the receipt already persisted.
	empty := cart.Clear(working)
	empty.BuyerName = domain.DefaultBuyerName
	if err := h.carts.SaveCart(ctx, registerID, empty); err != nil {
		log.Printf("failed to reset cart after checkout: %v", err)
	}

	respondJSON(w, http.StatusCreated, receipt)
}
