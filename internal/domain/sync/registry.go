package sync

import (
	"sync"
	"time"

	"github.com/asaskevich/EventBus"

	"clipsync-server-go/internal/platform/logging"
)

// Event bus topics published by the registry.
const (
	TopicDeviceOnline  = "sync:device_online"
	TopicDeviceOffline = "sync:device_offline"
)

// CloseReasonSuperseded is passed to the old transport when the same device
// identifier reconnects.
const CloseReasonSuperseded = "superseded"

// Transport is the write side of a live device connection. Implementations
// must be safe for concurrent SendJSON calls.
type Transport interface {
	SendJSON(v interface{}) error
	// Close terminates the connection, sending reason as a close frame
	// where the underlying protocol supports one. Must be bounded in time.
	Close(reason string) error
}

// DeviceInfo is the public snapshot of a live connection.
type DeviceInfo struct {
	DeviceID    string    `json:"device_id"`
	DeviceName  string    `json:"device_name"`
	UserID      int64     `json:"-"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
}

type liveConnection struct {
	info      DeviceInfo
	transport Transport
}

// Registry tracks live device connections per user and delivers messages to
// them. At most one live connection exists per device identifier: a second
// registration supersedes the first. All state is guarded by a single mutex;
// fan-out snapshots the connection set before writing so the set may change
// mid-iteration.
type Registry struct {
	mu               sync.Mutex
	conns            map[string]*liveConnection
	logger           *logging.Logger
	bus              EventBus.Bus
	supersedeTimeout time.Duration
}

// NewRegistry builds an empty connection registry. The bus is optional and
// receives device online/offline events for presence bookkeeping.
func NewRegistry(logger *logging.Logger, bus EventBus.Bus) *Registry {
	return &Registry{
		conns:            make(map[string]*liveConnection),
		logger:           logger,
		bus:              bus,
		supersedeTimeout: 5 * time.Second,
	}
}

// WithSupersedeTimeout bounds how long Register waits for a replaced
// connection's graceful close.
func (r *Registry) WithSupersedeTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.supersedeTimeout = d
	}
	return r
}

// Register records a new live connection. An existing connection for the
// same device identifier is closed first with reason "superseded"; the
// replacement becomes visible only after that close completes or times out,
// so at most one connection per device is ever observable. The user's other
// connections are notified with device_online.
func (r *Registry) Register(info DeviceInfo, transport Transport) {
	if info.DeviceName == "" {
		info.DeviceName = info.DeviceID
	}
	if info.ConnectedAt.IsZero() {
		info.ConnectedAt = time.Now()
	}

	r.mu.Lock()
	old, existed := r.conns[info.DeviceID]
	if existed {
		delete(r.conns, info.DeviceID)
	}
	r.mu.Unlock()

	if existed {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := old.transport.Close(CloseReasonSuperseded); err != nil {
				r.logger.WarnTag("Sync", "closing superseded connection %s failed: %v", info.DeviceID, err)
			}
		}()
		select {
		case <-done:
		case <-time.After(r.supersedeTimeout):
			r.logger.WarnTag("Sync", "superseded connection %s did not close in time", info.DeviceID)
		}
	}

	r.mu.Lock()
	r.conns[info.DeviceID] = &liveConnection{info: info, transport: transport}
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.InfoTag("Sync", "device connected: %s (%s), user=%s, online=%d",
		info.DeviceID, info.DeviceName, info.Username, total)

	if r.bus != nil {
		r.bus.Publish(TopicDeviceOnline, info)
	}

	r.FanOut(NewMessage(MessageDeviceOnline, map[string]interface{}{
		"device_id":    info.DeviceID,
		"device_name":  info.DeviceName,
		"online_count": r.Count(info.UserID),
	}), info.DeviceID, info.UserID)
}

// Unregister removes a connection if present. Idempotent. The user's
// remaining connections are notified with device_offline.
func (r *Registry) Unregister(deviceID string) {
	r.unregister(deviceID, nil)
}

// UnregisterConn removes the device only while transport is still its live
// connection. A superseded connection's teardown must not evict its
// replacement.
func (r *Registry) UnregisterConn(deviceID string, transport Transport) {
	r.unregister(deviceID, transport)
}

func (r *Registry) unregister(deviceID string, transport Transport) {
	r.mu.Lock()
	conn, ok := r.conns[deviceID]
	if ok && transport != nil && conn.transport != transport {
		r.mu.Unlock()
		return
	}
	if ok {
		delete(r.conns, deviceID)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}

	r.logger.InfoTag("Sync", "device disconnected: %s (%s), online=%d",
		deviceID, conn.info.DeviceName, total)

	if r.bus != nil {
		r.bus.Publish(TopicDeviceOffline, conn.info)
	}

	r.FanOut(NewMessage(MessageDeviceOffline, map[string]interface{}{
		"device_id":    deviceID,
		"online_count": r.Count(conn.info.UserID),
	}), "", conn.info.UserID)
}

// ListDevices returns snapshots of the live connections owned by userID.
// A zero userID returns every live connection.
func (r *Registry) ListDevices(userID int64) []DeviceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := make([]DeviceInfo, 0, len(r.conns))
	for _, conn := range r.conns {
		if userID != 0 && conn.info.UserID != userID {
			continue
		}
		devices = append(devices, conn.info)
	}
	return devices
}

// Count returns the number of live connections, scoped to userID when
// non-zero.
func (r *Registry) Count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID == 0 {
		return len(r.conns)
	}
	count := 0
	for _, conn := range r.conns {
		if conn.info.UserID == userID {
			count++
		}
	}
	return count
}

// SendTo delivers a message to a single device. A transport failure
// unregisters the device and is returned to the caller.
func (r *Registry) SendTo(deviceID string, msg interface{}) error {
	r.mu.Lock()
	conn, ok := r.conns[deviceID]
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := conn.transport.SendJSON(msg); err != nil {
		r.logger.WarnTag("Sync", "send to %s failed, dropping connection: %v", deviceID, err)
		r.Unregister(deviceID)
		return err
	}
	return nil
}

// FanOut delivers a message to every live connection matching the user
// filter (zero means all users), except excludeDeviceID. Each recipient
// failure is isolated: the failing connection is unregistered and the
// remaining sends proceed.
func (r *Registry) FanOut(msg interface{}, excludeDeviceID string, userID int64) {
	r.mu.Lock()
	targets := make([]*liveConnection, 0, len(r.conns))
	for deviceID, conn := range r.conns {
		if deviceID == excludeDeviceID {
			continue
		}
		if userID != 0 && conn.info.UserID != userID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.Unlock()

	var failed []string
	for _, conn := range targets {
		if err := conn.transport.SendJSON(msg); err != nil {
			r.logger.WarnTag("Sync", "fan-out to %s failed: %v", conn.info.DeviceID, err)
			failed = append(failed, conn.info.DeviceID)
		}
	}
	for _, deviceID := range failed {
		r.Unregister(deviceID)
	}
}

// CloseAll terminates every live connection, used on shutdown.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	conns := make([]*liveConnection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*liveConnection)
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.transport.Close(reason)
	}
}
