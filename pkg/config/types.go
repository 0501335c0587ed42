package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Chat     ChatConfig     `yaml:"chat"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Blob     BlobConfig     `yaml:"blob"`
}

// ServerConfig holds http, storage and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds CORS, rate limiting and identity settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Auth struct {
		// Token is the shared secret carried in X-Auth-Token. When set,
		// a matching token makes the X-Auth-User header the trusted
		// caller identity for privileged operations.
		Token    string `yaml:"token"`
		AuditDir string `yaml:"audit_dir"`
	} `yaml:"auth"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ChatConfig holds per-room behavior tunables. Zero values fall back to
// the documented defaults at load time.
type ChatConfig struct {
	RoomCap           int      `yaml:"room_cap"`
	ConversationCap   int      `yaml:"conversation_cap"`
	PresenceTimeout   Duration `yaml:"presence_timeout"`
	KickDuration      Duration `yaml:"kick_duration"`
	SpamWindow        Duration `yaml:"spam_window"`
	SpamHistory       int      `yaml:"spam_history"`
	DefaultModerators []string `yaml:"default_moderators"`
}

// SweepConfig configures the expiry sweeps. The sweep runs by default;
// purge-on-read alone never reaches rooms nobody reads anymore.
type SweepConfig struct {
	Disabled bool     `yaml:"disabled"`
	Interval Duration `yaml:"interval"`
	// Cron schedules the deep sweep over stored rooms without a live
	// actor. Empty means hourly.
	Cron string `yaml:"cron"`
}

// BlobConfig configures the opaque upload store.
type BlobConfig struct {
	MaxSize SizeBytes `yaml:"max_size"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "2MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "30s" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
