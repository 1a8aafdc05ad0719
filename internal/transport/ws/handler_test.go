package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"clipsync-server-go/internal/domain/auth"
	authstore "clipsync-server-go/internal/domain/auth/store"
	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/errors"
)

type stubUsers struct{ hash string }

func (s stubUsers) FindByUsername(_ context.Context, username string) (*auth.Credentials, error) {
	if username != "alice" {
		return nil, errors.ErrNotFound
	}
	return &auth.Credentials{UserID: 1, Username: "alice", PasswordHash: s.hash, IsActive: true}, nil
}

type memSyncStore struct {
	records map[int64]*sync.Record
	nextID  int64
}

func (s *memSyncStore) FindLatestByFingerprint(_ context.Context, userID int64, hash string) (*sync.Record, error) {
	var latest *sync.Record
	for _, r := range s.records {
		if r.UserID == userID && r.ContentHash == hash && (latest == nil || r.ID > latest.ID) {
			latest = r
		}
	}
	return latest, nil
}

func (s *memSyncStore) Insert(_ context.Context, record *sync.Record) (*sync.Record, error) {
	s.nextID++
	stored := *record
	stored.ID = s.nextID
	now := time.Now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.records[stored.ID] = &stored
	return &stored, nil
}

func (s *memSyncStore) CountByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, r := range s.records {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memSyncStore) OldestN(context.Context, int64, int) ([]*sync.Record, error) {
	return nil, nil
}

func (s *memSyncStore) DeleteByIDs(context.Context, []int64) (int64, error) { return 0, nil }

func (s *memSyncStore) TouchUpdatedAt(_ context.Context, id int64) (*sync.Record, error) {
	r := s.records[id]
	r.UpdatedAt = time.Now()
	return r, nil
}

type noBlobs struct{}

func (noBlobs) DeleteIfExists(string) (bool, error) { return false, nil }

type bigRetention struct{}

func (bigRetention) MaxHistoryItems(context.Context, int64) (int, error) { return 1000, nil }

type wsFixture struct {
	server  *httptest.Server
	token   string
	manager *auth.Manager
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	sessions := authstore.NewMemory(authstore.Config{TTL: time.Hour})
	t.Cleanup(func() { _ = sessions.Close(context.Background()) })
	manager := auth.NewManager(stubUsers{hash: hash}, auth.NewTokenIssuer("ws-test-secret"), sessions, nil)

	token, _, err := manager.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	registry := sync.NewRegistry(nil, nil)
	store := &memSyncStore{records: make(map[int64]*sync.Record)}
	queue := sync.NewBroadcastQueue(registry, 16, nil)
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	orchestrator := sync.NewOrchestrator(store, sync.NewDeduper(store),
		sync.NewEvictor(store, noBlobs{}, bigRetention{}, nil), queue, registry, time.Second, nil)

	handler := NewHandler(manager, registry, orchestrator, time.Second, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(server.Close)

	return &wsFixture{server: server, token: token, manager: manager}
}

func (f *wsFixture) dial(t *testing.T, deviceID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") +
		"?device_id=" + deviceID + "&device_name=" + deviceID + "&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func readMessageOfType(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg["type"] == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message before deadline", msgType)
	return nil
}

func TestBadTokenClosedWithPolicyViolation(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "phone", "garbage-token")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the server to close the connection")
	}
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("error is not a close error: %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", closeErr.Code, websocket.ClosePolicyViolation)
	}
}

func TestConnectHandshakeAndPing(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "phone", f.token)

	connected := readMessageOfType(t, conn, sync.MessageConnected)
	data := connected["data"].(map[string]interface{})
	if data["device_id"] != "phone" || data["username"] != "alice" {
		t.Errorf("connected data = %v", data)
	}

	err := conn.WriteJSON(map[string]interface{}{"action": "ping", "timestamp": "t-1"})
	if err != nil {
		t.Fatalf("write ping: %v", err)
	}
	pong := readMessageOfType(t, conn, sync.MessagePong)
	if pong["data"].(map[string]interface{})["timestamp"] != "t-1" {
		t.Errorf("pong did not echo the timestamp: %v", pong)
	}
}

func TestSyncClipboardFlow(t *testing.T) {
	f := newWSFixture(t)
	phone := f.dial(t, "phone", f.token)
	readMessageOfType(t, phone, sync.MessageConnected)

	desktop := f.dial(t, "desktop", f.token)
	readMessageOfType(t, desktop, sync.MessageConnected)

	err := phone.WriteJSON(map[string]interface{}{
		"action": "sync_clipboard",
		"data":   map[string]interface{}{"content": "hello from phone", "content_type": "text"},
	})
	if err != nil {
		t.Fatalf("write sync: %v", err)
	}

	confirmed := readMessageOfType(t, phone, sync.MessageSyncConfirmed)
	payload := confirmed["data"].(map[string]interface{})
	if payload["is_duplicate"] != false {
		t.Errorf("first sync marked duplicate: %v", payload)
	}

	broadcast := readMessageOfType(t, desktop, sync.MessageClipboardSync)
	if broadcast["source_device_id"] != "phone" {
		t.Errorf("broadcast source = %v", broadcast["source_device_id"])
	}
	if broadcast["data"].(map[string]interface{})["content"] != "hello from phone" {
		t.Errorf("broadcast payload = %v", broadcast["data"])
	}
}

func TestDuplicateSyncAcknowledgedWithTimestampUpdated(t *testing.T) {
	f := newWSFixture(t)
	phone := f.dial(t, "phone", f.token)
	readMessageOfType(t, phone, sync.MessageConnected)

	send := func(ackType string) map[string]interface{} {
		err := phone.WriteJSON(map[string]interface{}{
			"action": "sync_clipboard",
			"data":   map[string]interface{}{"content": "repeat me", "content_type": "text"},
		})
		if err != nil {
			t.Fatalf("write sync: %v", err)
		}
		return readMessageOfType(t, phone, ackType)
	}

	// New content gets sync_confirmed; the replay gets timestamp_updated,
	// the same notification peers see, never a second sync_confirmed.
	first := send(sync.MessageSyncConfirmed)["data"].(map[string]interface{})
	second := send(sync.MessageTimestampUpdated)["data"].(map[string]interface{})
	if first["is_duplicate"] != false || second["is_duplicate"] != true {
		t.Errorf("duplicate flags = %v / %v", first["is_duplicate"], second["is_duplicate"])
	}
	if first["clipboard_id"] != second["clipboard_id"] {
		t.Errorf("duplicate resolved to a different record: %v vs %v",
			first["clipboard_id"], second["clipboard_id"])
	}
}

func TestGetOnlineDevicesAndUnknownAction(t *testing.T) {
	f := newWSFixture(t)
	phone := f.dial(t, "phone", f.token)
	readMessageOfType(t, phone, sync.MessageConnected)

	if err := phone.WriteJSON(map[string]interface{}{"action": "get_online_devices"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	devices := readMessageOfType(t, phone, sync.MessageOnlineDevices)
	if devices["data"].(map[string]interface{})["count"] != float64(1) {
		t.Errorf("online devices = %v", devices["data"])
	}

	if err := phone.WriteJSON(map[string]interface{}{"action": "fly_to_the_moon"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	errMsg := readMessageOfType(t, phone, sync.MessageError)
	if !strings.Contains(errMsg["data"].(map[string]interface{})["message"].(string), "unknown action") {
		t.Errorf("error message = %v", errMsg["data"])
	}
}
