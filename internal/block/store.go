package block

import (
	"context"
	"errors"
)

// Store errors. Implementations must return ErrNotFound (possibly
// wrapped) for missing blocks so callers can distinguish absence from
// transport failure.
var (
	ErrNotFound      = errors.New("block not found")
	ErrAlreadyExists = errors.New("block already exists")
	ErrInvalidZone   = errors.New("invalid zone")
)

// Store is the document store the engine reads blocks from and writes
// compression results to. The engine never holds store state across a
// backend call; each method is an independent operation.
type Store interface {
	// Get returns the block with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Block, error)

	// Patch applies a partial update to an existing block.
	Patch(ctx context.Context, id string, p Patch) error

	// Insert stores a new block and returns its assigned ID. A block
	// with an empty ID gets one assigned.
	Insert(ctx context.Context, b *Block) (string, error)

	// Delete removes a block by ID.
	Delete(ctx context.Context, id string) error

	// List returns all blocks matching the predicate. A nil predicate
	// matches everything.
	List(ctx context.Context, match func(*Block) bool) ([]*Block, error)
}
