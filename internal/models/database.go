package models

import (
	"context"
	"time"
)

// * SearchRecord describes one computed aggregation. Only query metadata is
// * kept, the ranked results themselves are never stored.
type SearchRecord struct {
	ID            int       `json:"id"`
	Since         string    `json:"since"`
	Language      string    `json:"language"`
	ResultCount   int       `json:"result_count"`
	TopRepository string    `json:"top_repository,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	ComputedAt    time.Time `json:"computed_at"`
}

// * SearchHistory defines the storage operations needed for the search log
type SearchHistory interface {
	RecordSearch(ctx context.Context, record *SearchRecord) error
	ListRecentSearches(ctx context.Context, limit int) ([]SearchRecord, error)
}
