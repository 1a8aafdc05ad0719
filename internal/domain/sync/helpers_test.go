package sync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeTransport records everything sent through it.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []Message
	closed   []string
	failSend bool
}

func (t *fakeTransport) SendJSON(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSend {
		return errors.New("transport broken")
	}
	if msg, ok := v.(Message); ok {
		t.sent = append(t.sent, msg)
	}
	return nil
}

func (t *fakeTransport) Close(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = append(t.closed, reason)
	return nil
}

func (t *fakeTransport) messagesOfType(msgType string) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Message
	for _, msg := range t.sent {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

func (t *fakeTransport) closeReasons() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.closed...)
}

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]*Record)}
}

func (s *memStore) seed(t *testing.T, record *Record) *Record {
	t.Helper()
	inserted, err := s.Insert(context.Background(), record)
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	return inserted
}

func (s *memStore) FindLatestByFingerprint(_ context.Context, userID int64, hash string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Record
	for _, record := range s.records {
		if record.UserID != userID || record.ContentHash != hash {
			continue
		}
		if latest == nil || record.ID > latest.ID {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *memStore) Insert(_ context.Context, record *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := *record
	stored.ID = s.nextID
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.records[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (s *memStore) CountByUser(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, record := range s.records {
		if record.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) OldestN(_ context.Context, userID int64, n int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []*Record
	for _, record := range s.records {
		if record.UserID == userID {
			copied := *record
			owned = append(owned, &copied)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID < owned[j].ID
		}
		return owned[i].CreatedAt.Before(owned[j].CreatedAt)
	})
	if n > len(owned) {
		n = len(owned)
	}
	return owned[:n], nil
}

func (s *memStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memStore) TouchUpdatedAt(_ context.Context, id int64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	record.UpdatedAt = record.UpdatedAt.Add(time.Millisecond)
	if now := time.Now(); now.After(record.UpdatedAt) {
		record.UpdatedAt = now
	}
	copied := *record
	return &copied, nil
}

func (s *memStore) has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

// fakeBlobs is an in-memory BlobStore.
type fakeBlobs struct {
	mu      sync.Mutex
	blobs   map[string]bool
	failAll bool
}

func newFakeBlobs(ids ...string) *fakeBlobs {
	b := &fakeBlobs{blobs: make(map[string]bool)}
	for _, id := range ids {
		b.blobs[id] = true
	}
	return b
}

func (b *fakeBlobs) DeleteIfExists(blobID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll {
		return false, errors.New("blob storage unavailable")
	}
	if b.blobs[blobID] {
		delete(b.blobs, blobID)
		return true, nil
	}
	return false, nil
}

// fixedRetention returns the same cap for every user.
type fixedRetention int

func (r fixedRetention) MaxHistoryItems(context.Context, int64) (int, error) {
	return int(r), nil
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
