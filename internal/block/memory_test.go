package block

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{
		Content:    "design notes for the auth service",
		Zone:       ZoneWorking,
		Type:       "note",
		TokenCount: 8,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "design notes for the auth service", got.Content)
	assert.Equal(t, ZoneWorking, got.Zone)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt assigned on insert")
}

func TestMemoryStore_InsertKeepsCallerID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{ID: "blk-1", Content: "x", Zone: ZoneStable})
	require.NoError(t, err)
	assert.Equal(t, "blk-1", id)

	_, err = store.Insert(ctx, &Block{ID: "blk-1", Content: "y", Zone: ZoneStable})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_InsertRejectsInvalidZone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, &Block{Content: "x", Zone: Zone("frozen")})
	assert.ErrorIs(t, err, ErrInvalidZone)

	_, err = store.Insert(ctx, &Block{Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidZone, "empty zone is invalid")
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{Content: "original", Zone: ZoneStable})
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	got.Content = "mutated by caller"

	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Content)
}

func TestMemoryStore_Patch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{Content: "long form text", Zone: ZoneStable, TokenCount: 400})
	require.NoError(t, err)

	content := "summary"
	tokens := 120
	compressed := true
	ratio := 3.33
	strategy := "local"
	origTokens := 400
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	err = store.Patch(ctx, id, Patch{
		Content:            &content,
		TokenCount:         &tokens,
		IsCompressed:       &compressed,
		Ratio:              &ratio,
		Strategy:           &strategy,
		OriginalTokenCount: &origTokens,
		CompressedAt:       &at,
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "summary", got.Content)
	assert.Equal(t, 120, got.TokenCount)
	assert.True(t, got.IsCompressed)
	assert.Equal(t, 3.33, got.Ratio)
	assert.Equal(t, "local", got.Strategy)
	assert.Equal(t, 400, got.OriginalTokenCount)
	require.NotNil(t, got.CompressedAt)
	assert.Equal(t, at, *got.CompressedAt)
}

func TestMemoryStore_PatchPartial(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{Content: "keep me", Zone: ZoneStable, TokenCount: 42})
	require.NoError(t, err)

	tokens := 17
	require.NoError(t, store.Patch(ctx, id, Patch{TokenCount: &tokens}))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Content, "nil fields untouched")
	assert.Equal(t, 17, got.TokenCount)
}

func TestMemoryStore_PatchNotFound(t *testing.T) {
	store := NewMemoryStore()
	content := "x"
	err := store.Patch(context.Background(), "missing", Patch{Content: &content})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{Content: "x", Zone: ZoneWorking})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, zone := range []Zone{ZonePermanent, ZoneStable, ZoneStable, ZoneWorking} {
		_, err := store.Insert(ctx, &Block{Content: fmt.Sprintf("block %d", i), Zone: zone})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4, "nil predicate matches everything")

	stable, err := store.List(ctx, func(b *Block) bool { return b.Zone == ZoneStable })
	require.NoError(t, err)
	assert.Len(t, stable, 2)

	none, err := store.List(ctx, func(b *Block) bool { return false })
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, &Block{Content: "shared", Zone: ZoneStable})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tokens := i
			_ = store.Patch(ctx, id, Patch{TokenCount: &tokens})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Get(ctx, id)
			_, _ = store.List(ctx, nil)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Content)
}
