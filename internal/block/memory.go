package block

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. It is thread-safe
// and suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks map[string]*Block
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocks: make(map[string]*Block),
	}
}

// Get retrieves a block by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.blocks[id]
	if !exists {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external mutation.
	result := *b
	return &result, nil
}

// Patch applies a partial update to an existing block.
func (s *MemoryStore) Patch(ctx context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.blocks[id]
	if !exists {
		return ErrNotFound
	}

	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.TokenCount != nil {
		b.TokenCount = *p.TokenCount
	}
	if p.IsCompressed != nil {
		b.IsCompressed = *p.IsCompressed
	}
	if p.Ratio != nil {
		b.Ratio = *p.Ratio
	}
	if p.Strategy != nil {
		b.Strategy = *p.Strategy
	}
	if p.OriginalTokenCount != nil {
		b.OriginalTokenCount = *p.OriginalTokenCount
	}
	if p.CompressedAt != nil {
		t := *p.CompressedAt
		b.CompressedAt = &t
	}
	if p.MergedFromCount != nil {
		b.MergedFromCount = *p.MergedFromCount
	}

	return nil
}

// Insert stores a new block, assigning an ID if none is set.
func (s *MemoryStore) Insert(ctx context.Context, b *Block) (string, error) {
	if !b.Zone.Valid() {
		return "", ErrInvalidZone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	} else if _, exists := s.blocks[b.ID]; exists {
		return "", ErrAlreadyExists
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	stored := *b
	s.blocks[b.ID] = &stored

	return b.ID, nil
}

// Delete removes a block by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[id]; !exists {
		return ErrNotFound
	}
	delete(s.blocks, id)

	return nil
}

// List returns copies of all blocks matching the predicate.
func (s *MemoryStore) List(ctx context.Context, match func(*Block) bool) ([]*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Block
	for _, b := range s.blocks {
		if match == nil || match(b) {
			result := *b
			out = append(out, &result)
		}
	}

	return out, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
