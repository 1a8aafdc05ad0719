package sync

import (
	"context"
	"strings"

	"clipsync-server-go/internal/platform/errors"
	"clipsync-server-go/internal/platform/logging"
)

// Evictor trims a user's clipboard history down to their retention cap,
// deleting the oldest records and the blobs they reference.
type Evictor struct {
	store     Store
	blobs     BlobStore
	retention RetentionSource
	logger    *logging.Logger
}

// NewEvictor wires an evictor. blobs may be nil when no blob storage is
// configured; file-backed records then only lose their database rows.
func NewEvictor(store Store, blobs BlobStore, retention RetentionSource, logger *logging.Logger) *Evictor {
	return &Evictor{store: store, blobs: blobs, retention: retention, logger: logger}
}

// Report summarizes one enforcement pass.
type Report struct {
	Limit        int
	Count        int64
	RowsDeleted  int64
	BlobsDeleted int
}

// Enforce deletes the user's oldest records until the count fits the
// retention cap. Blob deletion failures are logged and do not stop row
// deletion.
func (e *Evictor) Enforce(ctx context.Context, userID int64) (Report, error) {
	const op = "eviction.enforce"

	limit, err := e.retention.MaxHistoryItems(ctx, userID)
	if err != nil {
		return Report{}, errors.Wrap(errors.KindStorage, op, "retention lookup failed", err)
	}
	if limit < MinRetention {
		limit = MinRetention
	} else if limit > MaxRetention {
		limit = MaxRetention
	}

	count, err := e.store.CountByUser(ctx, userID)
	if err != nil {
		return Report{}, errors.Wrap(errors.KindStorage, op, "history count failed", err)
	}

	report := Report{Limit: limit, Count: count}
	excess := count - int64(limit)
	if excess <= 0 {
		return report, nil
	}

	victims, err := e.store.OldestN(ctx, userID, int(excess))
	if err != nil {
		return report, errors.Wrap(errors.KindStorage, op, "oldest lookup failed", err)
	}

	ids := make([]int64, 0, len(victims))
	for _, victim := range victims {
		ids = append(ids, victim.ID)
		if !victim.ContentKind.FileBacked() || e.blobs == nil {
			continue
		}
		blobID := blobIDFromContent(victim.Content)
		if blobID == "" {
			continue
		}
		deleted, err := e.blobs.DeleteIfExists(blobID)
		if err != nil {
			e.logger.WarnTag("Eviction", "blob %s delete failed: %v", blobID, err)
			continue
		}
		if deleted {
			report.BlobsDeleted++
		}
	}

	rows, err := e.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return report, errors.Wrap(errors.KindStorage, op, "row delete failed", err)
	}
	report.RowsDeleted = rows

	e.logger.InfoTag("Eviction", "user %d: trimmed %d of %d records (limit %d, blobs %d)",
		userID, rows, count, limit, report.BlobsDeleted)
	return report, nil
}

// blobIDFromContent extracts the blob identifier from a record's content
// field, which may hold a bare identifier or a download path.
func blobIDFromContent(content string) string {
	if idx := strings.LastIndexByte(content, '/'); idx >= 0 {
		return content[idx+1:]
	}
	return content
}
