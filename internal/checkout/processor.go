// Package checkout validates a working cart and commits it to the
// receipt history as an immutable receipt.
package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/cache"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

type Processor struct {
	receipts repository.ReceiptStore
	cache    cache.ReceiptCache
	now      func() time.Time
	newID    func() string
}

func NewProcessor(receipts repository.ReceiptStore, receiptCache cache.ReceiptCache) *Processor {
	return &Processor{
		receipts: receipts,
		cache:    receiptCache,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ProcessCheckout validates the cart and buyer, stamps the receipt and
// appends it to history via a full-list replace. Validation order is
// fixed: buyer name, then cart emptiness, then per-line checks (name,
// quantity, price). On any failure nothing is written and the caller
// keeps the cart; on success resetting the working cart is the
// caller's responsibility.
func (p *Processor) ProcessCheckout(
	ctx context.Context,
	cart domain.Receipt,
	buyerName string,
	status domain.ReceiptStatus,
	payment domain.PaymentMethod,
) (domain.Receipt, error) {

	buyer := strings.TrimSpace(buyerName)
	if buyer == "" {
		return domain.Receipt{}, fmt.Errorf("buyer name: %w", domain.ErrInvalidName)
	}
	if len(cart.Lines) == 0 {
		return domain.Receipt{}, domain.ErrEmptyCart
	}
	for i, line := range cart.Lines {
		if err := line.Validate(); err != nil {
			return domain.Receipt{}, fmt.Errorf("line %d: %w", i, err)
		}
	}

	if payment == "" {
		payment = domain.PaymentCash
	}

	// Line ids come over verbatim; checkout never regenerates them.
	receipt := domain.Receipt{
		ID:            p.newID(),
		BuyerName:     buyer,
		Lines:         cart.CloneLines(),
		PaymentMethod: payment,
		Status:        status,
		Timestamp:     p.now(),
	}

	history, err := p.receipts.Receipts(ctx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("load receipt history: %w", err)
	}
	if err := p.receipts.ReplaceReceipts(ctx, append(history, receipt)); err != nil {
		return domain.Receipt{}, fmt.Errorf("append receipt: %w", err)
	}

	p.invalidateCache()
	return receipt, nil
}

// SaveForLater commits the cart as a SAVE_FOR_LATER receipt paid CASH.
func (p *Processor) SaveForLater(ctx context.Context, cart domain.Receipt, buyerName string) (domain.Receipt, error) {
	return p.ProcessCheckout(ctx, cart, buyerName, domain.StatusSaveForLater, domain.PaymentCash)
}

func (p *Processor) invalidateCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.cache.Delete(ctx); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
