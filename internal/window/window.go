// Package window exposes the block-facing compression operations: in
// place compression of a single block and the merge of several blocks
// into one compacted successor.
package window

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/compactd/internal/block"
	"github.com/fyrsmithlabs/compactd/internal/compression"
	"github.com/fyrsmithlabs/compactd/internal/tokens"
)

// Merge-path validation errors.
var (
	ErrNoBlocks = errors.New("at least one block is required")
)

// Engine is the slice of the compression orchestrator the window
// operations use.
type Engine interface {
	Compress(ctx context.Context, unit compression.Unit, strategy compression.Strategy) (*compression.Outcome, error)
}

// Service coordinates compression attempts against the block store.
type Service struct {
	store     block.Store
	engine    Engine
	estimator tokens.Estimator
	logger    *zap.Logger
}

// NewService wires the window operations.
func NewService(store block.Store, engine Engine, estimator tokens.Estimator, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if estimator == nil {
		return nil, fmt.Errorf("estimator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, engine: engine, estimator: estimator, logger: logger}, nil
}

// CompressSingle compresses one block in place. On acceptance the
// block is patched with the compacted content and compression
// metadata; OriginalTokenCount keeps the value from the first
// successful compression across re-compressions.
func (s *Service) CompressSingle(ctx context.Context, blockID string, strategy compression.Strategy) (*compression.Outcome, error) {
	b, err := s.store.Get(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("load block %s: %w", blockID, err)
	}

	unit := compression.Unit{
		Content:        b.Content,
		ContentType:    b.Type,
		OriginalTokens: s.tokenCount(b),
		SourceCount:    1,
	}

	outcome, err := s.engine.Compress(ctx, unit, strategy)
	if err != nil {
		s.logger.Info("compression rejected",
			zap.String("block_id", blockID),
			zap.String("strategy", string(strategy)),
			zap.String("reason", outcome.Reason),
		)
		return outcome, err
	}

	now := outcome.CompressedAt
	compressed := true
	strategyName := string(strategy)
	patch := block.Patch{
		Content:      &outcome.CompressedText,
		TokenCount:   &outcome.CompressedTokens,
		IsCompressed: &compressed,
		Ratio:        &outcome.Ratio,
		Strategy:     &strategyName,
		CompressedAt: &now,
	}
	// Provenance: only the first successful compression sets the
	// original count.
	if b.OriginalTokenCount == 0 {
		patch.OriginalTokenCount = &outcome.OriginalTokens
	}
	if err := s.store.Patch(ctx, blockID, patch); err != nil {
		return outcome, fmt.Errorf("patch block %s: %w", blockID, err)
	}

	s.logger.Info("block compressed",
		zap.String("block_id", blockID),
		zap.String("strategy", string(strategy)),
		zap.Float64("ratio", outcome.Ratio),
		zap.Float64("quality", outcome.QualityScore),
	)
	return outcome, nil
}

// CompressAndMerge combines N blocks into a single compression unit
// and, on acceptance, replaces them with one compacted block. The new
// block is inserted before any source block is deleted, so a crash
// mid-sequence never loses content without a successor existing. On
// any rejection every source block is left untouched.
func (s *Service) CompressAndMerge(ctx context.Context, blockIDs []string, strategy compression.Strategy, targetZone block.Zone, targetType string) (string, *compression.Outcome, error) {
	if len(blockIDs) == 0 {
		return "", nil, ErrNoBlocks
	}
	if !targetZone.Valid() {
		return "", nil, fmt.Errorf("%w: %q", block.ErrInvalidZone, targetZone)
	}

	blocks := make([]*block.Block, 0, len(blockIDs))
	for _, id := range blockIDs {
		b, err := s.store.Get(ctx, id)
		if err != nil {
			return "", nil, fmt.Errorf("load block %s: %w", id, err)
		}
		blocks = append(blocks, b)
	}

	unit := s.buildUnit(blocks, targetType)

	outcome, err := s.engine.Compress(ctx, unit, strategy)
	if err != nil {
		s.logger.Info("merge rejected",
			zap.Int("block_count", len(blocks)),
			zap.String("strategy", string(strategy)),
			zap.String("reason", outcome.Reason),
		)
		return "", outcome, err
	}

	now := outcome.CompressedAt
	merged := &block.Block{
		Content:            outcome.CompressedText,
		Zone:               targetZone,
		Type:               targetType,
		TokenCount:         outcome.CompressedTokens,
		IsCompressed:       true,
		Ratio:              outcome.Ratio,
		Strategy:           string(strategy),
		OriginalTokenCount: outcome.OriginalTokens,
		CompressedAt:       &now,
		MergedFromCount:    len(blocks),
	}

	// Insert before delete. If the insert fails nothing is deleted.
	newID, err := s.store.Insert(ctx, merged)
	if err != nil {
		return "", outcome, fmt.Errorf("insert merged block: %w", err)
	}

	var deleteErrs []error
	for _, b := range blocks {
		if err := s.store.Delete(ctx, b.ID); err != nil {
			deleteErrs = append(deleteErrs, fmt.Errorf("delete block %s: %w", b.ID, err))
		}
	}
	if len(deleteErrs) > 0 {
		// The successor exists; surface the cleanup failure but keep
		// the new ID so the caller can reconcile.
		return newID, outcome, errors.Join(deleteErrs...)
	}

	s.logger.Info("blocks merged",
		zap.Int("block_count", len(blocks)),
		zap.String("new_block_id", newID),
		zap.String("strategy", string(strategy)),
		zap.Float64("ratio", outcome.Ratio),
	)
	return newID, outcome, nil
}

// buildUnit concatenates block contents with per-block headers so the
// backend sees where one block ends and the next begins.
func (s *Service) buildUnit(blocks []*block.Block, targetType string) compression.Unit {
	var sb strings.Builder
	total := 0
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		label := b.Type
		if label == "" {
			label = "untyped"
		}
		fmt.Fprintf(&sb, "--- block %d of %d (%s) ---\n", i+1, len(blocks), label)
		sb.WriteString(b.Content)
		total += s.tokenCount(b)
	}
	return compression.Unit{
		Content:        sb.String(),
		ContentType:    targetType,
		OriginalTokens: total,
		SourceCount:    len(blocks),
	}
}

// tokenCount reuses the block's cached count when present, otherwise
// estimates fresh.
func (s *Service) tokenCount(b *block.Block) int {
	if b.TokenCount > 0 {
		return b.TokenCount
	}
	return s.estimator.Estimate(b.Content)
}

// ZoneUsage is the per-zone window arithmetic the UI renders.
type ZoneUsage struct {
	Zone       block.Zone `json:"zone"`
	Blocks     int        `json:"blocks"`
	Tokens     int        `json:"tokens"`
	Compressed int        `json:"compressed"`
}

// Usage reports block counts and token totals per zone, read-only.
func (s *Service) Usage(ctx context.Context) ([]ZoneUsage, error) {
	blocks, err := s.store.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	byZone := map[block.Zone]*ZoneUsage{}
	for _, z := range []block.Zone{block.ZonePermanent, block.ZoneStable, block.ZoneWorking} {
		byZone[z] = &ZoneUsage{Zone: z}
	}
	for _, b := range blocks {
		u, ok := byZone[b.Zone]
		if !ok {
			continue
		}
		u.Blocks++
		u.Tokens += s.tokenCount(b)
		if b.IsCompressed {
			u.Compressed++
		}
	}

	usage := make([]ZoneUsage, 0, 3)
	for _, z := range []block.Zone{block.ZonePermanent, block.ZoneStable, block.ZoneWorking} {
		usage = append(usage, *byZone[z])
	}
	return usage, nil
}
