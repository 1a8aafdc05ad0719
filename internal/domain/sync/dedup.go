package sync

import (
	"context"

	"clipsync-server-go/internal/platform/errors"
)

// Deduper answers "has this user synced this exact content before?" using
// the content fingerprint, and refreshes the matching record's timestamp on
// a hit so it survives eviction longer.
type Deduper struct {
	store Store
}

// NewDeduper wires a deduper over the durable store.
func NewDeduper(store Store) *Deduper {
	return &Deduper{store: store}
}

// CheckAndRefresh looks up the newest record carrying hash for the user. On
// a hit it bumps the record's updated_at and returns the refreshed record;
// on a miss it returns (nil, nil).
func (d *Deduper) CheckAndRefresh(ctx context.Context, userID int64, hash string) (*Record, error) {
	const op = "dedup.check_and_refresh"

	existing, err := d.store.FindLatestByFingerprint(ctx, userID, hash)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "fingerprint lookup failed", err)
	}
	if existing == nil {
		return nil, nil
	}

	refreshed, err := d.store.TouchUpdatedAt(ctx, existing.ID)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "timestamp refresh failed", err)
	}
	return refreshed, nil
}
