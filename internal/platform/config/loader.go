package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"clipsync-server-go/internal/platform/errors"
)

const (
	defaultConfigPath = "config.yaml"
	envConfigPath     = "CLIPSYNC_CONFIG"
)

// Loader reads configuration from a yaml file with environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader reading from config.yaml (or CLIPSYNC_CONFIG).
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the yaml file if present, falls back to defaults otherwise, and
// applies environment overrides last.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	path := l.path
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := &Config{}
	origin := path
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load", "failed to parse config file", err)
		}
	case os.IsNotExist(err):
		origin = "defaults"
	default:
		return nil, errors.Wrap(errors.KindConfig, "config.load", "failed to read config file", err)
	}

	cfg.applyDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: origin}, nil
}

// applyEnvOverrides lets deployment environments override secrets and ports
// without touching the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLIPSYNC_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("CLIPSYNC_DB_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("CLIPSYNC_UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}
	if v := os.Getenv("CLIPSYNC_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("CLIPSYNC_WS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Transport.WebSocket.Port = port
		}
	}
	if v := os.Getenv("CLIPSYNC_REDIS_ADDR"); v != "" {
		cfg.Auth.Session.Redis.Addr = v
	}
	if v := os.Getenv("CLIPSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) validate() error {
	if c.Web.Port == c.Transport.WebSocket.Port {
		return errors.New(errors.KindConfig, "config.validate",
			"web and websocket ports must differ")
	}
	if c.Auth.Session.Type != "memory" && c.Auth.Session.Type != "redis" {
		return errors.New(errors.KindConfig, "config.validate",
			fmt.Sprintf("unsupported session store type %q", c.Auth.Session.Type))
	}
	if c.Auth.Session.Type == "redis" && c.Auth.Session.Redis.Addr == "" {
		return errors.New(errors.KindConfig, "config.validate",
			"redis session store requires an addr")
	}
	return nil
}
