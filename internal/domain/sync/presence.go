package sync

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"

	"clipsync-server-go/internal/platform/logging"
)

// DeviceWriter persists device presence transitions.
type DeviceWriter interface {
	MarkOnline(ctx context.Context, userID int64, deviceID, deviceName string, at time.Time) error
	MarkOffline(ctx context.Context, deviceID string, at time.Time) error
}

// PresenceRecorder subscribes to registry events and mirrors them into the
// devices table so last-seen survives restarts.
type PresenceRecorder struct {
	devices DeviceWriter
	logger  *logging.Logger
}

// NewPresenceRecorder wires a recorder over the device store.
func NewPresenceRecorder(devices DeviceWriter, logger *logging.Logger) *PresenceRecorder {
	return &PresenceRecorder{devices: devices, logger: logger}
}

// Subscribe attaches the recorder to the bus. Handlers run asynchronously so
// a slow database write never blocks a connect or disconnect.
func (p *PresenceRecorder) Subscribe(bus EventBus.Bus) error {
	if err := bus.SubscribeAsync(TopicDeviceOnline, p.onOnline, false); err != nil {
		return err
	}
	return bus.SubscribeAsync(TopicDeviceOffline, p.onOffline, false)
}

func (p *PresenceRecorder) onOnline(info DeviceInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.devices.MarkOnline(ctx, info.UserID, info.DeviceID, info.DeviceName, info.ConnectedAt); err != nil {
		p.logger.WarnTag("Sync", "recording device %s online failed: %v", info.DeviceID, err)
	}
}

func (p *PresenceRecorder) onOffline(info DeviceInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.devices.MarkOffline(ctx, info.DeviceID, time.Now()); err != nil {
		p.logger.WarnTag("Sync", "recording device %s offline failed: %v", info.DeviceID, err)
	}
}
