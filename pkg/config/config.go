package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Chat behavior defaults, applied when the corresponding config value is
// zero.
const (
	DefaultRoomCap         = 1000
	DefaultConversationCap = 100
	DefaultPresenceTimeout = 60 * time.Second
	DefaultKickDuration    = 5 * time.Minute
	DefaultSpamWindow      = 30 * time.Second
	DefaultSpamHistory     = 10
	DefaultSweepInterval   = 30 * time.Second
	DefaultSweepCron       = "0 * * * *"
)

// Rate limiting defaults, applied per caller bucket when the config
// leaves them zero.
const (
	DefaultRateRPS   = 5.0
	DefaultRateBurst = 10
)

// RuntimeConfig holds derived runtime values that other packages may
// query while the server is running (populated during startup after
// merging env+file).
type RuntimeConfig struct {
	AuthToken string
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetAuthToken returns the configured shared-secret token, or empty when
// token auth is not configured.
func GetAuthToken() string {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return ""
	}
	return runtimeCfg.AuthToken
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// ApplyChatDefaults fills zero-valued chat/sweep tunables with defaults.
func (c *Config) ApplyChatDefaults() {
	if c.Chat.RoomCap == 0 {
		c.Chat.RoomCap = DefaultRoomCap
	}
	if c.Chat.ConversationCap == 0 {
		c.Chat.ConversationCap = DefaultConversationCap
	}
	if c.Chat.PresenceTimeout.Duration() == 0 {
		c.Chat.PresenceTimeout = Duration(DefaultPresenceTimeout)
	}
	if c.Chat.KickDuration.Duration() == 0 {
		c.Chat.KickDuration = Duration(DefaultKickDuration)
	}
	if c.Chat.SpamWindow.Duration() == 0 {
		c.Chat.SpamWindow = Duration(DefaultSpamWindow)
	}
	if c.Chat.SpamHistory == 0 {
		c.Chat.SpamHistory = DefaultSpamHistory
	}
	if c.Sweep.Interval.Duration() == 0 {
		c.Sweep.Interval = Duration(DefaultSweepInterval)
	}
	if c.Sweep.Cron == "" {
		c.Sweep.Cron = DefaultSweepCron
	}
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
