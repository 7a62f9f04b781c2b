// Package history implements read-side queries over the committed
// receipt history, plus the idempotent dismiss operation.
package history

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/cache"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

type Service struct {
	receipts repository.ReceiptStore
	cache    cache.ReceiptCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewService(receipts repository.ReceiptStore, receiptCache cache.ReceiptCache) *Service {
	return &Service{
		receipts: receipts,
		cache:    receiptCache,
	}
}

// loadReceipts serves the full history snapshot, cache first. Cache
// failures are logged and fall through to the store.
func (s *Service) loadReceipts(ctx context.Context) ([]domain.Receipt, error) {
	v, err, _ := s.sfg.Do("receipts", func() (interface{}, error) {
		receipts, err := s.cache.Get(ctx)
		if err == nil {
			return receipts, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		receipts, errGet := s.receipts.Receipts(ctx)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), receipts)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return receipts, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.Receipt), nil
}

// PurchaseHistory returns the checked-out receipts.
func (s *Service) PurchaseHistory(ctx context.Context) ([]domain.Receipt, error) {
	return s.byStatus(ctx, domain.StatusCheckedOut)
}

// SavedForLater returns the receipts parked for a later visit.
func (s *Service) SavedForLater(ctx context.Context) ([]domain.Receipt, error) {
	return s.byStatus(ctx, domain.StatusSaveForLater)
}

func (s *Service) byStatus(ctx context.Context, status domain.ReceiptStatus) ([]domain.Receipt, error) {
	all, err := s.loadReceipts(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []domain.Receipt
	for _, r := range all {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// TotalRevenue sums the totals of CHECKED_OUT receipts only; saved and
// pending receipts never count as revenue.
func (s *Service) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	checkedOut, err := s.byStatus(ctx, domain.StatusCheckedOut)
	if err != nil {
		return decimal.Zero, err
	}

	revenue := decimal.Zero
	for _, r := range checkedOut {
		revenue = revenue.Add(r.TotalPrice())
	}
	return revenue, nil
}

// ReceiptsByBuyer filters by case-insensitive buyer-name substring.
// An empty substring matches every receipt.
func (s *Service) ReceiptsByBuyer(ctx context.Context, substring string) ([]domain.Receipt, error) {
	all, err := s.loadReceipts(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(substring)
	var matched []domain.Receipt
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.BuyerName), needle) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// ReceiptCount counts all receipts regardless of status.
func (s *Service) ReceiptCount(ctx context.Context) (int, error) {
	all, err := s.loadReceipts(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// RemoveReceipt dismisses a receipt from history. Removing a receipt
// that is not present succeeds and writes nothing, so a dismiss action
// never surfaces a failure to the user.
func (s *Service) RemoveReceipt(ctx context.Context, receipt domain.Receipt) error {
	// Read the authoritative list, not the cache: the write must be
	// computed against the latest snapshot.
	all, err := s.receipts.Receipts(ctx)
	if err != nil {
		return err
	}

	remaining := make([]domain.Receipt, 0, len(all))
	removed := false
	for _, r := range all {
		if !removed && r.ID == receipt.ID {
			removed = true
			continue
		}
		remaining = append(remaining, r)
	}

	if !removed {
		return nil
	}

	if err := s.receipts.ReplaceReceipts(ctx, remaining); err != nil {
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *Service) invalidateCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
