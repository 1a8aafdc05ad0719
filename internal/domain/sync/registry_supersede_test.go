package sync

import (
	"testing"
	"time"
)

// blockingCloseTransport holds its Close call open until released.
type blockingCloseTransport struct {
	fakeTransport
	closing chan struct{}
	release chan struct{}
}

func newBlockingCloseTransport() *blockingCloseTransport {
	return &blockingCloseTransport{
		closing: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (t *blockingCloseTransport) Close(reason string) error {
	close(t.closing)
	<-t.release
	return t.fakeTransport.Close(reason)
}

func TestRegisterHidesReplacementUntilOldConnectionClosed(t *testing.T) {
	registry := NewRegistry(nil, nil).WithSupersedeTimeout(2 * time.Second)

	old := newBlockingCloseTransport()
	registry.Register(DeviceInfo{DeviceID: "laptop", UserID: 1, Username: "alice"}, old)

	replacement := &fakeTransport{}
	registered := make(chan struct{})
	go func() {
		defer close(registered)
		registry.Register(DeviceInfo{DeviceID: "laptop", UserID: 1, Username: "alice"}, replacement)
	}()

	// While the old transport's close is still in flight, neither connection
	// may be observable for the device.
	<-old.closing
	if got := registry.Count(1); got != 0 {
		t.Errorf("connection count during supersede close = %d, want 0", got)
	}
	registry.FanOut(NewMessage(MessageClipboardSync, nil), "", 1)
	if got := len(replacement.messagesOfType(MessageClipboardSync)); got != 0 {
		t.Errorf("replacement received %d messages before old connection closed", got)
	}

	close(old.release)
	<-registered

	if got := registry.Count(1); got != 1 {
		t.Fatalf("connection count after supersede = %d, want 1", got)
	}
	if reasons := old.closeReasons(); len(reasons) != 1 || reasons[0] != CloseReasonSuperseded {
		t.Errorf("old transport close reasons = %v", reasons)
	}
}

func TestUnregisterConnIgnoresSupersededTransport(t *testing.T) {
	registry := NewRegistry(nil, nil)

	old := register(registry, "laptop", "Laptop", 1)
	register(registry, "laptop", "Laptop", 1)

	// The superseded connection's teardown races the new registration. Its
	// unregister must not evict the replacement.
	registry.UnregisterConn("laptop", old)

	if got := registry.Count(1); got != 1 {
		t.Fatalf("connection count = %d, want 1", got)
	}
}
