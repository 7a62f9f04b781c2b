package repository

import (
	"context"
	"sync"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

// MemoryStore keeps everything in process memory. It backs tests and
// runs the shell when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts []domain.Receipt
	catalog  []domain.CatalogItem
	carts    map[string]domain.Receipt

	receiptWatch *broadcaster[[]domain.Receipt]
	catalogWatch *broadcaster[[]domain.CatalogItem]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:        make(map[string]domain.Receipt),
		receiptWatch: newBroadcaster[[]domain.Receipt](),
		catalogWatch: newBroadcaster[[]domain.CatalogItem](),
	}
}

func (s *MemoryStore) Receipts(_ context.Context) ([]domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneReceipts(s.receipts), nil
}

func (s *MemoryStore) ReplaceReceipts(_ context.Context, receipts []domain.Receipt) error {
	snapshot := cloneReceipts(receipts)

	s.mu.Lock()
	s.receipts = snapshot
	s.mu.Unlock()

	s.receiptWatch.publish(cloneReceipts(snapshot))
	return nil
}

func (s *MemoryStore) WatchReceipts(ctx context.Context) <-chan []domain.Receipt {
	return s.receiptWatch.subscribe(ctx)
}

func (s *MemoryStore) CatalogItems(_ context.Context) ([]domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCatalog(s.catalog), nil
}

func (s *MemoryStore) ReplaceCatalogItems(_ context.Context, items []domain.CatalogItem) error {
	snapshot := cloneCatalog(items)

	s.mu.Lock()
	s.catalog = snapshot
	s.mu.Unlock()

	s.catalogWatch.publish(cloneCatalog(snapshot))
	return nil
}

func (s *MemoryStore) WatchCatalogItems(ctx context.Context) <-chan []domain.CatalogItem {
	return s.catalogWatch.subscribe(ctx)
}

func (s *MemoryStore) GetCart(_ context.Context, registerID string) (domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[registerID]
	if !ok {
		return domain.Receipt{}, ErrCartNotFound
	}
	cart.Lines = cart.CloneLines()
	return cart, nil
}

func (s *MemoryStore) SaveCart(_ context.Context, registerID string, cart domain.Receipt) error {
	cart.Lines = cart.CloneLines()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[registerID] = cart
	return nil
}

func (s *MemoryStore) DeleteCart(_ context.Context, registerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, registerID)
	return nil
}

func cloneReceipts(receipts []domain.Receipt) []domain.Receipt {
	out := make([]domain.Receipt, len(receipts))
	for i, r := range receipts {
		r.Lines = r.CloneLines()
		out[i] = r
	}
	return out
}

func cloneCatalog(items []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	copy(out, items)
	return out
}
