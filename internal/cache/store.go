// Package cache implements the chunked results cache that backs C4, the
// search & pagination service (§4.4/§6): a SearchResultSet is written as one
// metadata record plus fixed-size chunks, and read back by chunk index so a
// page spans at most two chunk reads.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Meta is the per-results_id metadata record stored at
// "{prefix}:{results_id}:meta".
type Meta struct {
	Total         int       `json:"total"`
	PageSizeHint  int       `json:"page_size_hint"`
	CreatedAt     time.Time `json:"created_at"`
	TTLSeconds    int       `json:"ttl_seconds"`
	SearchLemma   string    `json:"search_lemma,omitempty"`
	SearchQuery   string    `json:"search_query,omitempty"`
	CategoryFacet []string  `json:"category_facet,omitempty"`
}

// Store is the external-boundary cache interface C4 depends on. Every
// implementation must be safe for concurrent use; the results_id namespace
// is single-writer per §5's shared-resource policy, but reads are concurrent.
type Store interface {
	// PutMeta writes the metadata record for results_id with the given TTL.
	PutMeta(ctx context.Context, prefix, resultsID string, meta Meta, ttl time.Duration) error
	// GetMeta reads the metadata record, returning ok=false if absent or expired.
	GetMeta(ctx context.Context, prefix, resultsID string) (Meta, bool, error)
	// PutChunk writes chunk index k (0-based) of results, JSON-encoded.
	PutChunk(ctx context.Context, prefix, resultsID string, k int, results json.RawMessage, ttl time.Duration) error
	// GetChunk reads chunk index k, returning ok=false if absent or expired.
	GetChunk(ctx context.Context, prefix, resultsID string, k int) (json.RawMessage, bool, error)
	// Invalidate removes every key associated with results_id.
	Invalidate(ctx context.Context, prefix, resultsID string) error
}
