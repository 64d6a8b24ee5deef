package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures viewer and server settings.
type Config struct {
	ServerURL       string
	LogFile         string
	FollowThreshold int
	BufferLimit     int
	Reconnect       Reconnect
	Serve           Serve
}

// Reconnect bounds the streaming client's backoff.
type Reconnect struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Serve configures the log server.
type Serve struct {
	Listen       string
	File         string
	Dir          string
	PollInterval time.Duration
}

const (
	defaultConfigPath      = "~/.config/logview/config.toml"
	defaultServerURL       = "http://127.0.0.1:8080"
	defaultLogFile         = "~/.local/state/logview/logview.log"
	defaultFollowThreshold = 5
	defaultBufferLimit     = 5000
	defaultBaseDelay       = time.Second
	defaultMaxDelay        = 30 * time.Second
	defaultMaxAttempts     = 10
	defaultListen          = ":8080"
	defaultPollInterval    = 300 * time.Millisecond
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:       defaultServerURL,
		LogFile:         mustExpand(defaultLogFile),
		FollowThreshold: defaultFollowThreshold,
		BufferLimit:     defaultBufferLimit,
		Reconnect: Reconnect{
			BaseDelay:   defaultBaseDelay,
			MaxDelay:    defaultMaxDelay,
			MaxAttempts: defaultMaxAttempts,
		},
		Serve: Serve{
			Listen:       defaultListen,
			PollInterval: defaultPollInterval,
		},
	}
}

type rawConfig struct {
	ServerURL       string `toml:"server_url"`
	LogFile         string `toml:"log_file"`
	FollowThreshold *int   `toml:"follow_threshold"`
	BufferLimit     int    `toml:"buffer_limit"`
	Reconnect       struct {
		BaseDelayMS int `toml:"base_delay_ms"`
		MaxDelayMS  int `toml:"max_delay_ms"`
		MaxAttempts int `toml:"max_attempts"`
	} `toml:"reconnect"`
	Serve struct {
		Listen         string `toml:"listen"`
		File           string `toml:"file"`
		Dir            string `toml:"dir"`
		PollIntervalMS int    `toml:"poll_interval_ms"`
	} `toml:"serve"`
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if raw.FollowThreshold != nil && *raw.FollowThreshold >= 0 {
		cfg.FollowThreshold = *raw.FollowThreshold
	}
	if raw.BufferLimit > 0 {
		cfg.BufferLimit = raw.BufferLimit
	}

	if raw.Reconnect.BaseDelayMS > 0 {
		cfg.Reconnect.BaseDelay = time.Duration(raw.Reconnect.BaseDelayMS) * time.Millisecond
	}
	if raw.Reconnect.MaxDelayMS > 0 {
		cfg.Reconnect.MaxDelay = time.Duration(raw.Reconnect.MaxDelayMS) * time.Millisecond
	}
	if cfg.Reconnect.MaxDelay < cfg.Reconnect.BaseDelay {
		cfg.Reconnect.MaxDelay = cfg.Reconnect.BaseDelay
	}
	if raw.Reconnect.MaxAttempts > 0 {
		cfg.Reconnect.MaxAttempts = raw.Reconnect.MaxAttempts
	}

	if v := strings.TrimSpace(raw.Serve.Listen); v != "" {
		cfg.Serve.Listen = v
	}
	if v := strings.TrimSpace(raw.Serve.File); v != "" {
		cfg.Serve.File = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Serve.Dir); v != "" {
		cfg.Serve.Dir = mustExpand(v)
	}
	if raw.Serve.PollIntervalMS > 0 {
		cfg.Serve.PollInterval = time.Duration(raw.Serve.PollIntervalMS) * time.Millisecond
	}

	return cfg, nil
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
