package config

import "time"

// Default returns the baseline configuration used when config.yaml is absent
// or leaves fields unset.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			Dir:   "./logs",
			File:  "server.log",
		},
		Web: WebConfig{
			IP:        "0.0.0.0",
			Port:      8000,
			StaticDir: "./web",
		},
		Transport: TransportConfig{
			WebSocket: WebSocketConfig{
				IP:               "0.0.0.0",
				Port:             8001,
				Path:             "/ws",
				HandshakeTimeout: Duration(10 * time.Second),
			},
		},
		Storage: StorageConfig{
			SQLitePath: "./data/clipboard.db",
			UploadDir:  "./uploads",
		},
		Auth: AuthConfig{
			Secret:   "change-this-in-production",
			TokenTTL: Duration(7 * 24 * time.Hour),
			Session: SessionStoreConfig{
				Type: "memory",
				TTL:  Duration(7 * 24 * time.Hour),
			},
		},
		Sync: SyncConfig{
			QueueSize:              1024,
			StoreTimeout:           Duration(5 * time.Second),
			SupersedeTimeout:       Duration(5 * time.Second),
			DefaultMaxHistoryItems: 1000,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Dir == "" {
		c.Log.Dir = def.Log.Dir
	}
	if c.Log.File == "" {
		c.Log.File = def.Log.File
	}
	if c.Web.IP == "" {
		c.Web.IP = def.Web.IP
	}
	if c.Web.Port == 0 {
		c.Web.Port = def.Web.Port
	}
	if c.Web.StaticDir == "" {
		c.Web.StaticDir = def.Web.StaticDir
	}
	if c.Transport.WebSocket.IP == "" {
		c.Transport.WebSocket.IP = def.Transport.WebSocket.IP
	}
	if c.Transport.WebSocket.Port == 0 {
		c.Transport.WebSocket.Port = def.Transport.WebSocket.Port
	}
	if c.Transport.WebSocket.Path == "" {
		c.Transport.WebSocket.Path = def.Transport.WebSocket.Path
	}
	if c.Transport.WebSocket.HandshakeTimeout <= 0 {
		c.Transport.WebSocket.HandshakeTimeout = def.Transport.WebSocket.HandshakeTimeout
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = def.Storage.SQLitePath
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = def.Storage.UploadDir
	}
	if c.Auth.Secret == "" {
		c.Auth.Secret = def.Auth.Secret
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = def.Auth.TokenTTL
	}
	if c.Auth.Session.Type == "" {
		c.Auth.Session.Type = def.Auth.Session.Type
	}
	if c.Auth.Session.TTL <= 0 {
		c.Auth.Session.TTL = c.Auth.TokenTTL
	}
	if c.Sync.QueueSize <= 0 {
		c.Sync.QueueSize = def.Sync.QueueSize
	}
	if c.Sync.StoreTimeout <= 0 {
		c.Sync.StoreTimeout = def.Sync.StoreTimeout
	}
	if c.Sync.SupersedeTimeout <= 0 {
		c.Sync.SupersedeTimeout = def.Sync.SupersedeTimeout
	}
	if c.Sync.DefaultMaxHistoryItems <= 0 {
		c.Sync.DefaultMaxHistoryItems = def.Sync.DefaultMaxHistoryItems
	}
}
