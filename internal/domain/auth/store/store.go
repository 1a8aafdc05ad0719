package store

import (
	"context"
	"time"
)

// Session is one issued access token, keyed by its jti. A token is accepted
// only while its session exists in the store; logout removes it.
type Session struct {
	JTI       string    `json:"jti"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's lifetime has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store defines the behaviour required by the auth manager.
type Store interface {
	Save(ctx context.Context, session Session) error
	Get(ctx context.Context, jti string) (Session, error)
	Revoke(ctx context.Context, jti string) error
	// IsActive reports whether the session exists and has not expired.
	IsActive(ctx context.Context, jti string) (bool, error)
	List(ctx context.Context) ([]string, error)
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
