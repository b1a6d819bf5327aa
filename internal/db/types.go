package db

import (
	"context"
	"time"
)

// ResolutionRecord is the stored outcome of resolving one repository.
type ResolutionRecord struct {
	Repo       string    `json:"repo"`
	Bucket     string    `json:"bucket"`
	Vendor     string    `json:"vendor"`
	Product    string    `json:"product"`
	Tier       string    `json:"tier"`
	Candidates string    `json:"candidates"` // JSON blob, set for ambiguous repositories
	UpdatedAt  time.Time `json:"updated_at"`
}

// OriginRecord is the stored outcome of one fix commit's origin search.
type OriginRecord struct {
	Key       string    `json:"key"`
	CVEID     string    `json:"cve_id"`
	Repo      string    `json:"repo"`
	Fix       string    `json:"fix"`
	Status    string    `json:"status"`
	Payload   string    `json:"payload"` // JSON blob for flexibility
	UpdatedAt time.Time `json:"updated_at"`
}

// Store interface defines the methods for persistent storage.
// Saves are upserts keyed by repository or request key, so re-runs never duplicate rows.
type Store interface {
	Close() error
	SaveResolution(ctx context.Context, rec ResolutionRecord) error
	SaveOrigin(ctx context.Context, rec OriginRecord) error
	GetOrigin(ctx context.Context, key string) (OriginRecord, bool, error)
}
