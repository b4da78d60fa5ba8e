// Package block defines the content unit managed by the context window
// and the document store contract the compression engine works against.
package block

import (
	"time"
)

// Zone is the priority bucket a block lives in. Zones govern budget
// accounting and eviction order; the compression engine only reads
// them.
type Zone string

const (
	ZonePermanent Zone = "PERMANENT"
	ZoneStable    Zone = "STABLE"
	ZoneWorking   Zone = "WORKING"
)

// Valid reports whether z is one of the three known zones.
func (z Zone) Valid() bool {
	switch z {
	case ZonePermanent, ZoneStable, ZoneWorking:
		return true
	}
	return false
}

// Block is an atomic unit of context-window content.
type Block struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Zone    Zone   `json:"zone"`
	// Type is a free-form semantic tag (note, code, message, ...).
	// It only influences the compression prompt's content-type slot.
	Type       string `json:"type,omitempty"`
	TokenCount int    `json:"token_count"`

	IsCompressed bool `json:"is_compressed"`
	// Compression metadata, set once IsCompressed is true.
	Ratio    float64 `json:"ratio,omitempty"`
	Strategy string  `json:"strategy,omitempty"`
	// OriginalTokenCount preserves pre-compression provenance. Once
	// set it is never decreased, even across re-compression.
	OriginalTokenCount int        `json:"original_token_count,omitempty"`
	CompressedAt       *time.Time `json:"compressed_at,omitempty"`
	MergedFromCount    int        `json:"merged_from_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Patch describes a partial update to a block. Nil fields are left
// unchanged.
type Patch struct {
	Content            *string
	TokenCount         *int
	IsCompressed       *bool
	Ratio              *float64
	Strategy           *string
	OriginalTokenCount *int
	CompressedAt       *time.Time
	MergedFromCount    *int
}
