package sync

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func seedHistory(t *testing.T, store *memStore, userID int64, n int) []*Record {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	records := make([]*Record, 0, n)
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("item-%d", i)
		records = append(records, store.seed(t, &Record{
			Content:     content,
			ContentKind: KindText,
			ContentHash: Fingerprint(KindText, content),
			UserID:      userID,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return records
}

func TestEnforceUnderLimitDeletesNothing(t *testing.T) {
	store := newMemStore()
	seedHistory(t, store, 1, 50)

	evictor := NewEvictor(store, newFakeBlobs(), fixedRetention(100), nil)
	report, err := evictor.Enforce(context.Background(), 1)
	if err != nil {
		t.Fatalf("Enforce returned error: %v", err)
	}
	if report.RowsDeleted != 0 {
		t.Errorf("deleted %d rows, want 0", report.RowsDeleted)
	}
	if count, _ := store.CountByUser(context.Background(), 1); count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestEnforceDeletesOldestBeyondLimit(t *testing.T) {
	store := newMemStore()
	records := seedHistory(t, store, 1, 105)

	evictor := NewEvictor(store, newFakeBlobs(), fixedRetention(100), nil)
	report, err := evictor.Enforce(context.Background(), 1)
	if err != nil {
		t.Fatalf("Enforce returned error: %v", err)
	}
	if report.RowsDeleted != 5 {
		t.Errorf("deleted %d rows, want 5", report.RowsDeleted)
	}
	for _, old := range records[:5] {
		if store.has(old.ID) {
			t.Errorf("oldest record %d survived eviction", old.ID)
		}
	}
	for _, kept := range records[5:] {
		if !store.has(kept.ID) {
			t.Errorf("newer record %d was evicted", kept.ID)
		}
	}
}

func TestEnforceClampsRetentionBounds(t *testing.T) {
	store := newMemStore()
	seedHistory(t, store, 1, 120)

	// A cap below the floor is raised to 100.
	evictor := NewEvictor(store, newFakeBlobs(), fixedRetention(5), nil)
	report, err := evictor.Enforce(context.Background(), 1)
	if err != nil {
		t.Fatalf("Enforce returned error: %v", err)
	}
	if report.Limit != MinRetention {
		t.Errorf("limit = %d, want %d", report.Limit, MinRetention)
	}
	if count, _ := store.CountByUser(context.Background(), 1); count != 100 {
		t.Errorf("count after enforcement = %d, want 100", count)
	}

	evictor = NewEvictor(store, newFakeBlobs(), fixedRetention(50000), nil)
	report, err = evictor.Enforce(context.Background(), 1)
	if err != nil {
		t.Fatalf("Enforce returned error: %v", err)
	}
	if report.Limit != MaxRetention {
		t.Errorf("limit = %d, want %d", report.Limit, MaxRetention)
	}
}

func TestEnforceDeletesBlobsOfFileBackedRecords(t *testing.T) {
	store := newMemStore()
	seedHistory(t, store, 1, 100)
	// Two oldest extras are file backed, one via a bare blob id and one via
	// a download path.
	old := time.Now().Add(-24 * time.Hour)
	store.seed(t, &Record{
		Content: "blob-a", ContentKind: KindImage,
		ContentHash: Fingerprint(KindImage, "blob-a"),
		UserID:      1, CreatedAt: old,
	})
	store.seed(t, &Record{
		Content: "/api/v1/files/download/blob-b", ContentKind: KindFile,
		ContentHash: Fingerprint(KindFile, "/api/v1/files/download/blob-b"),
		UserID:      1, CreatedAt: old.Add(time.Minute),
	})

	blobs := newFakeBlobs("blob-a", "blob-b", "blob-keep")
	evictor := NewEvictor(store, blobs, fixedRetention(100), nil)
	report, err := evictor.Enforce(context.Background(), 1)
	if err != nil {
		t.Fatalf("Enforce returned error: %v", err)
	}
	if report.RowsDeleted != 2 {
		t.Errorf("deleted %d rows, want 2", report.RowsDeleted)
	}
	if report.BlobsDeleted != 2 {
		t.Errorf("deleted %d blobs, want 2", report.BlobsDeleted)
	}
	if !blobs.blobs["blob-keep"] {
		t.Error("unrelated blob was deleted")
	}
}

func TestEnforceSurvivesBlobFailures(t *testing.T) {
	store := newMemStore()
	seedHistory(t, store, 1, 100)
	store.seed(t, &Record{
		Content: "blob-x", ContentKind: KindImage,
		ContentHash: Fingerprint(KindImage, "blob-x"),
		UserID:      1, CreatedAt: time.Now().Add(-24 * time.Hour),
	})

	blobs := newFakeBlobs("blob-x")
	blobs.failAll = true
	evictor := NewEvictor(store, blobs, fixedRetention(100), nil)
	report, err := evictor.Enforce(context.Background(), 1)
	if err != nil {
		t.Fatalf("Enforce returned error despite blob failure being best-effort: %v", err)
	}
	if report.RowsDeleted != 1 {
		t.Errorf("deleted %d rows, want 1", report.RowsDeleted)
	}
	if count, _ := store.CountByUser(context.Background(), 1); count != 100 {
		t.Errorf("count = %d, want 100", count)
	}
}

func TestEnforceIsScopedToUser(t *testing.T) {
	store := newMemStore()
	seedHistory(t, store, 1, 110)
	seedHistory(t, store, 2, 10)

	evictor := NewEvictor(store, newFakeBlobs(), fixedRetention(100), nil)
	if _, err := evictor.Enforce(context.Background(), 1); err != nil {
		t.Fatalf("Enforce returned error: %v", err)
	}
	if count, _ := store.CountByUser(context.Background(), 2); count != 10 {
		t.Errorf("user 2 count = %d, want 10 (untouched)", count)
	}
}
