package sync

import (
	"context"
	"time"
)

// ContentKind classifies a clipboard record's payload.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindFile  ContentKind = "file"
)

// Valid reports whether the kind is one the engine accepts.
func (k ContentKind) Valid() bool {
	return k == KindText || k == KindImage || k == KindFile
}

// FileBacked reports whether the record's content field references a blob.
func (k ContentKind) FileBacked() bool {
	return k == KindImage || k == KindFile
}

// Retention bounds for max_history_items.
const (
	MinRetention = 100
	MaxRetention = 10000
)

// Record is a persisted clipboard entry. For image and file kinds the
// Content field holds the blob identifier.
type Record struct {
	ID          int64
	Content     string
	ContentKind ContentKind
	ContentHash string
	UserID      int64
	DeviceID    string
	DeviceName  string
	FileName    string
	FileSize    int64
	MimeType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Favorite    bool
	Tags        string
	Synced      bool
}

// Store is the durable clipboard store consumed by the sync engine.
// Implementations return (nil, nil) from FindLatestByFingerprint on a miss.
type Store interface {
	FindLatestByFingerprint(ctx context.Context, userID int64, hash string) (*Record, error)
	Insert(ctx context.Context, record *Record) (*Record, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	OldestN(ctx context.Context, userID int64, n int) ([]*Record, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	TouchUpdatedAt(ctx context.Context, id int64) (*Record, error)
}

// BlobStore deletes uploaded blobs referenced by evicted records.
type BlobStore interface {
	DeleteIfExists(blobID string) (bool, error)
}

// RetentionSource resolves the per-user history cap.
type RetentionSource interface {
	MaxHistoryItems(ctx context.Context, userID int64) (int, error)
}
