package settlement

import (
	"context"
	"sync"

	"github.com/clawstack/clawpay/types"
)

// Store persists deployed split contracts, one per author. GetByAuthor
// returns (nil, nil) when the author has no split yet; that is what makes
// GetOrCreateAuthorSplit idempotent.
type Store interface {
	GetByAuthor(ctx context.Context, authorID string) (*types.SplitContract, error)
	Create(ctx context.Context, record *types.SplitContract) error
}

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.SplitContract
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.SplitContract)}
}

func (s *MemoryStore) GetByAuthor(_ context.Context, authorID string) (*types.SplitContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[authorID]
	if !ok {
		return nil, nil
	}
	out := record
	return &out, nil
}

func (s *MemoryStore) Create(_ context.Context, record *types.SplitContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// First write wins, matching the Postgres store's conflict behavior.
	if _, ok := s.records[record.AuthorID]; ok {
		return nil
	}
	s.records[record.AuthorID] = *record
	return nil
}
