package szz

import (
	"context"
	"encoding/json"
	"fmt"

	"cveorigin/internal/db"
)

// Checkpoint persists finished results so an interrupted batch can resume.
type Checkpoint interface {
	Load(ctx context.Context, key string) (Result, bool, error)
	Save(ctx context.Context, key string, res Result) error
}

// StoreCheckpoint keeps results in a db.Store as JSON payloads.
type StoreCheckpoint struct {
	Store db.Store
}

// Load implements Checkpoint.
func (c StoreCheckpoint) Load(ctx context.Context, key string) (Result, bool, error) {
	rec, ok, err := c.Store.GetOrigin(ctx, key)
	if err != nil || !ok {
		return Result{}, false, err
	}
	var res Result
	if err := json.Unmarshal([]byte(rec.Payload), &res); err != nil {
		return Result{}, false, fmt.Errorf("stored origin %s is corrupt: %w", key, err)
	}
	return res, true, nil
}

// Save implements Checkpoint.
func (c StoreCheckpoint) Save(ctx context.Context, key string, res Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode origin %s: %w", key, err)
	}
	return c.Store.SaveOrigin(ctx, db.OriginRecord{
		Key:     key,
		CVEID:   res.CVEID,
		Repo:    res.Repo,
		Fix:     res.Fix,
		Status:  string(res.Status),
		Payload: string(payload),
	})
}
