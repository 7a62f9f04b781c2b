package cache

import (
	"context"
	"errors"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

// ReceiptCache holds the latest receipt-history snapshot so history
// queries do not hit the store on every read.
type ReceiptCache interface {
	Get(ctx context.Context) ([]domain.Receipt, error)
	Set(ctx context.Context, receipts []domain.Receipt) error
	Delete(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
