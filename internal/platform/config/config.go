package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes yaml duration values given either as strings understood by
// time.ParseDuration ("10s", "168h") or as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(v)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Sync      SyncConfig      `yaml:"sync"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// WebConfig configures the gin HTTP API server.
type WebConfig struct {
	IP        string `yaml:"ip"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type TransportConfig struct {
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type WebSocketConfig struct {
	IP               string   `yaml:"ip"`
	Port             int      `yaml:"port"`
	Path             string   `yaml:"path"`
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
}

type StorageConfig struct {
	// SQLitePath is the path to the clipboard database file.
	SQLitePath string `yaml:"sqlite_path"`
	// UploadDir holds uploaded blobs addressed by file identifier.
	UploadDir string `yaml:"upload_dir"`
}

type AuthConfig struct {
	// Secret signs access tokens. Must be overridden in production via
	// CLIPSYNC_AUTH_SECRET.
	Secret   string             `yaml:"secret"`
	TokenTTL Duration           `yaml:"token_ttl"`
	Session  SessionStoreConfig `yaml:"session"`
}

// SessionStoreConfig selects where issued sessions are tracked.
type SessionStoreConfig struct {
	Type  string             `yaml:"type"`
	TTL   Duration           `yaml:"ttl"`
	Redis RedisSessionConfig `yaml:"redis,omitempty"`
}

type RedisSessionConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// SyncConfig tunes the synchronization engine.
type SyncConfig struct {
	// QueueSize bounds the broadcast queue; producers block when full.
	QueueSize int `yaml:"queue_size"`
	// StoreTimeout bounds durable-store calls on the publish path.
	StoreTimeout Duration `yaml:"store_timeout"`
	// SupersedeTimeout bounds the graceful close of a replaced connection.
	SupersedeTimeout Duration `yaml:"supersede_timeout"`
	// DefaultMaxHistoryItems applies to users without an explicit setting.
	DefaultMaxHistoryItems int `yaml:"default_max_history_items"`
}
