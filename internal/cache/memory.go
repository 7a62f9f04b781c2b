package cache

import (
	"context"
	"sync"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

// MemoryCache is the single-process fallback used when no Redis is
// configured, and the stand-in for tests.
type MemoryCache struct {
	mu       sync.RWMutex
	receipts []domain.Receipt
	filled   bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Get(_ context.Context) ([]domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.filled {
		return nil, ErrCacheMiss
	}
	out := make([]domain.Receipt, len(m.receipts))
	copy(out, m.receipts)
	return out, nil
}

func (m *MemoryCache) Set(_ context.Context, receipts []domain.Receipt) error {
	snapshot := make([]domain.Receipt, len(receipts))
	copy(snapshot, receipts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = snapshot
	m.filled = true
	return nil
}

func (m *MemoryCache) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = nil
	m.filled = false
	return nil
}
