package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clipsync-server-go/internal/platform/errors"
)

// DeviceRepository persists device presence rows.
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a repository over the database handle.
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// MarkOnline upserts the device row and flags it online.
func (r *DeviceRepository) MarkOnline(ctx context.Context, userID int64, deviceID, deviceName string, at time.Time) error {
	const op = "device.mark_online"

	var model Device
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&model).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		model = Device{
			UserID:     userID,
			DeviceID:   deviceID,
			DeviceName: deviceName,
			IsOnline:   true,
			LastSeen:   at,
		}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "failed to create device", err)
		}
		return nil
	case err != nil:
		return errors.Wrap(errors.KindStorage, op, "failed to find device", err)
	}

	err = r.db.WithContext(ctx).Model(&model).Updates(map[string]interface{}{
		"user_id":     userID,
		"device_name": deviceName,
		"is_online":   true,
		"last_seen":   at,
	}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, op, "failed to update device", err)
	}
	return nil
}

// MarkOffline flags the device offline. Unknown devices are ignored.
func (r *DeviceRepository) MarkOffline(ctx context.Context, deviceID string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&Device{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{"is_online": false, "last_seen": at}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "device.mark_offline", "failed to update device", err)
	}
	return nil
}

// ListByUser returns the user's known devices, most recently seen first.
func (r *DeviceRepository) ListByUser(ctx context.Context, userID int64) ([]*Device, error) {
	var models []Device
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "device.list", "failed to list devices", err)
	}
	devices := make([]*Device, len(models))
	for i := range models {
		devices[i] = &models[i]
	}
	return devices, nil
}
