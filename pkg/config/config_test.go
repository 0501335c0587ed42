package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /tmp/chat.db
security:
  cors:
    allowed_origins: ["https://example.com"]
  rate_limit:
    rps: 2.5
    burst: 20
  auth:
    token: sekrit
chat:
  room_cap: 50
  presence_timeout: 90s
  kick_duration: 10m
  spam_window: 45s
  default_moderators: [alice, bob]
sweep:
  disabled: true
  interval: 15s
  cron: "*/5 * * * *"
blob:
  max_size: 2MB
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Address != "127.0.0.1" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.Security.Auth.Token != "sekrit" {
		t.Fatalf("unexpected token: %q", cfg.Security.Auth.Token)
	}
	if cfg.Chat.RoomCap != 50 {
		t.Fatalf("unexpected room cap: %d", cfg.Chat.RoomCap)
	}
	if cfg.Chat.PresenceTimeout.Duration() != 90*time.Second {
		t.Fatalf("unexpected presence timeout: %v", cfg.Chat.PresenceTimeout.Duration())
	}
	if cfg.Chat.KickDuration.Duration() != 10*time.Minute {
		t.Fatalf("unexpected kick duration: %v", cfg.Chat.KickDuration.Duration())
	}
	if len(cfg.Chat.DefaultModerators) != 2 {
		t.Fatalf("unexpected moderators: %v", cfg.Chat.DefaultModerators)
	}
	if cfg.Sweep.Cron != "*/5 * * * *" || cfg.Sweep.Interval.Duration() != 15*time.Second {
		t.Fatalf("unexpected sweep config: %+v", cfg.Sweep)
	}
	if !cfg.Sweep.Disabled {
		t.Fatalf("sweep disable flag not parsed: %+v", cfg.Sweep)
	}
	if cfg.Blob.MaxSize.Int64() != 2_000_000 {
		t.Fatalf("unexpected blob max size: %d", cfg.Blob.MaxSize.Int64())
	}
	if cfg.Security.RateLimit.RPS != 2.5 || cfg.Security.RateLimit.Burst != 20 {
		t.Fatalf("unexpected rate limit: %+v", cfg.Security.RateLimit)
	}
}

func TestApplyChatDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyChatDefaults()
	if cfg.Chat.RoomCap != DefaultRoomCap {
		t.Fatalf("room cap default not applied: %d", cfg.Chat.RoomCap)
	}
	if cfg.Chat.ConversationCap != DefaultConversationCap {
		t.Fatalf("conversation cap default not applied: %d", cfg.Chat.ConversationCap)
	}
	if cfg.Chat.PresenceTimeout.Duration() != DefaultPresenceTimeout {
		t.Fatalf("presence timeout default not applied")
	}
	if cfg.Chat.KickDuration.Duration() != DefaultKickDuration {
		t.Fatalf("kick duration default not applied")
	}
	if cfg.Chat.SpamWindow.Duration() != DefaultSpamWindow || cfg.Chat.SpamHistory != DefaultSpamHistory {
		t.Fatalf("spam defaults not applied")
	}
	if cfg.Sweep.Cron != DefaultSweepCron {
		t.Fatalf("sweep cron default not applied: %q", cfg.Sweep.Cron)
	}
	// The zero value leaves the sweep running; it is opt-out, not opt-in.
	if cfg.Sweep.Disabled {
		t.Fatalf("sweep must be enabled by default")
	}
}

func TestDurationUnmarshalBareNumber(t *testing.T) {
	path := writeConfig(t, `
chat:
  presence_timeout: 90
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Chat.PresenceTimeout.Duration() != 90*time.Second {
		t.Fatalf("bare numbers should parse as seconds, got %v", cfg.Chat.PresenceTimeout.Duration())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATSERV_ADDR", "0.0.0.0:7070")
	t.Setenv("CHATSERV_DB_PATH", "/data/chat")
	t.Setenv("CHATSERV_AUTH_TOKEN", "envtoken")
	t.Setenv("CHATSERV_DEFAULT_MODERATORS", "alice, bob ,")
	t.Setenv("CHATSERV_CORS_ORIGINS", "https://a.example,https://b.example")

	var cfg Config
	if !LoadEnvOverrides(&cfg) {
		t.Fatalf("env overrides should report usage")
	}
	if cfg.Server.Address != "0.0.0.0" || cfg.Server.Port != 7070 {
		t.Fatalf("addr override not applied: %+v", cfg.Server)
	}
	if cfg.Server.DBPath != "/data/chat" {
		t.Fatalf("db path override not applied: %q", cfg.Server.DBPath)
	}
	if cfg.Security.Auth.Token != "envtoken" {
		t.Fatalf("token override not applied")
	}
	if len(cfg.Chat.DefaultModerators) != 2 || cfg.Chat.DefaultModerators[1] != "bob" {
		t.Fatalf("moderator list not parsed: %v", cfg.Chat.DefaultModerators)
	}
	if len(cfg.Security.CORS.AllowedOrigins) != 2 {
		t.Fatalf("origins not parsed: %v", cfg.Security.CORS.AllowedOrigins)
	}
}

func TestLoadEffectivePrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /from/file
`)
	t.Setenv("CHATSERV_CONFIG", path)
	t.Setenv("CHATSERV_PORT", "")
	t.Setenv("CHATSERV_ADDR", "")

	// File only.
	flags := Flags{Addr: ":8080", DB: "./.database", Config: "./config.yaml", Set: map[string]bool{}}
	eff, err := LoadEffective(flags)
	if err != nil {
		t.Fatalf("load effective failed: %v", err)
	}
	if eff.Addr != "127.0.0.1:9090" || eff.DBPath != "/from/file" {
		t.Fatalf("file values not used: %+v", eff)
	}
	if eff.Source != "config" {
		t.Fatalf("expected config source, got %q", eff.Source)
	}

	// An explicitly set flag beats the file.
	flags.Set["addr"] = true
	flags.Addr = ":7000"
	eff, err = LoadEffective(flags)
	if err != nil {
		t.Fatalf("load effective failed: %v", err)
	}
	if eff.Addr != ":7000" {
		t.Fatalf("flag should win over file, got %q", eff.Addr)
	}

	// Defaults are applied on the way out.
	if eff.Config.Chat.RoomCap != DefaultRoomCap {
		t.Fatalf("chat defaults not applied: %d", eff.Config.Chat.RoomCap)
	}
}

func TestLoadEffectiveMissingExplicitConfigFails(t *testing.T) {
	t.Setenv("CHATSERV_CONFIG", "")
	flags := Flags{
		Addr: ":8080", DB: "./.database",
		Config: filepath.Join(t.TempDir(), "missing.yaml"),
		Set:    map[string]bool{"config": true},
	}
	if _, err := LoadEffective(flags); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestRuntimeToken(t *testing.T) {
	SetRuntime(&RuntimeConfig{AuthToken: "t0k"})
	if GetAuthToken() != "t0k" {
		t.Fatalf("unexpected runtime token")
	}
	SetRuntime(nil)
	if GetAuthToken() != "" {
		t.Fatalf("expected empty token after reset")
	}
}
