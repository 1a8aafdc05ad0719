package storage

import "time"

// User is an account row.
type User struct {
	ID              int64     `gorm:"primaryKey"`
	Username        string    `gorm:"uniqueIndex;not null"`
	PasswordHash    string    `gorm:"not null"`
	Email           string    `gorm:"index"`
	IsAdmin         bool      `gorm:"default:false"`
	IsActive        bool      `gorm:"default:true"`
	MaxHistoryItems int        `gorm:"default:1000"`
	LastLogin       *time.Time
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName maps the model to its table.
func (User) TableName() string { return "users" }

// ClipboardHistory is one synced clipboard entry. For image and file types
// the content column holds the blob identifier.
type ClipboardHistory struct {
	ID          int64     `gorm:"primaryKey"`
	UserID      int64     `gorm:"index:idx_clipboard_user_hash;index:idx_clipboard_user_created;not null"`
	Content     string    `gorm:"type:text;not null"`
	ContentType string    `gorm:"not null"`
	ContentHash string    `gorm:"index:idx_clipboard_user_hash;not null"`
	DeviceID    string    `gorm:"index"`
	DeviceName  string
	FileName    string
	FileSize    int64
	MimeType    string
	IsFavorite  bool   `gorm:"default:false"`
	Tags        string `gorm:"type:text"`
	IsSynced    bool   `gorm:"default:true"`
	CreatedAt   time.Time `gorm:"index:idx_clipboard_user_created;not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName maps the model to its table.
func (ClipboardHistory) TableName() string { return "clipboard_history" }

// Device is the persisted presence row for a client device.
type Device struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"index;not null"`
	DeviceID   string    `gorm:"uniqueIndex;not null"`
	DeviceName string
	IsOnline   bool      `gorm:"default:false"`
	LastSeen   time.Time
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName maps the model to its table.
func (Device) TableName() string { return "devices" }
