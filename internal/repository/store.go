// Package repository persists the catalog, the receipt history, and
// the working cart. Writes are always full-list replacements computed
// by the caller; after every successful replace the new snapshot is
// pushed to any watch subscribers.
package repository

import (
	"context"
	"errors"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

var ErrCartNotFound = errors.New("working cart not found")

// ReceiptStore holds the committed receipt history.
// Consumers define this interface, not the storage implementations.
type ReceiptStore interface {
	// Receipts returns the current full history snapshot.
	Receipts(ctx context.Context) ([]domain.Receipt, error)

	// ReplaceReceipts swaps the whole history for the given list.
	ReplaceReceipts(ctx context.Context, receipts []domain.Receipt) error

	// WatchReceipts delivers a full snapshot after every successful
	// replace. The channel closes when ctx is done.
	WatchReceipts(ctx context.Context) <-chan []domain.Receipt
}

// CatalogStore holds the sellable item definitions.
type CatalogStore interface {
	CatalogItems(ctx context.Context) ([]domain.CatalogItem, error)
	ReplaceCatalogItems(ctx context.Context, items []domain.CatalogItem) error
	WatchCatalogItems(ctx context.Context) <-chan []domain.CatalogItem
}

// CartStore persists the working cart per register so an interrupted
// session can resume. The cart is a PENDING receipt that has not been
// appended to history.
type CartStore interface {
	GetCart(ctx context.Context, registerID string) (domain.Receipt, error)
	SaveCart(ctx context.Context, registerID string, cart domain.Receipt) error
	DeleteCart(ctx context.Context, registerID string) error
}
