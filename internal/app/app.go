package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"chatserv/internal/sweep"
	"chatserv/pkg/config"
	"chatserv/pkg/logger"
	"chatserv/pkg/room"
	"chatserv/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	reg    *room.Registry
	cancel context.CancelFunc

	srv *http.Server
}

// New initializes resources that do not require a running context (config
// validation, runtime token, store, room registry). It does not start the
// sweeper or the HTTP server; call Run to start those and block until
// shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	config.SetRuntime(&config.RuntimeConfig{
		AuthToken: eff.Config.Security.Auth.Token,
	})

	if dir := eff.Config.Security.Auth.AuditDir; dir != "" {
		if err := logger.AttachAuditFileSink(dir); err != nil {
			return nil, fmt.Errorf("failed to attach audit sink: %w", err)
		}
	}

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	cc := eff.Config.Chat
	reg := room.NewRegistry(room.Config{
		RoomCap:           cc.RoomCap,
		ConversationCap:   cc.ConversationCap,
		PresenceTimeout:   cc.PresenceTimeout.Duration(),
		KickDuration:      cc.KickDuration.Duration(),
		SpamWindow:        cc.SpamWindow.Duration(),
		SpamHistory:       cc.SpamHistory,
		DefaultModerators: append([]string{}, cc.DefaultModerators...),
	})
	sweep.SetRegistry(reg)

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, reg: reg}
	return a, nil
}

// Run starts the sweeper and the HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	cancelSweep, err := sweep.Start(ctx, a.reg, a.eff.Config.Sweep)
	if err != nil {
		return err
	}
	defer cancelSweep()

	a.logStartup()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// shutdown drains the HTTP server then closes the store.
func (a *App) shutdown() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Warn("store_close_error", "error", err)
	}
}

// validateConfig fails fast on configs that cannot produce a working
// server.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("nil config")
	}
	if eff.Addr == "" {
		return fmt.Errorf("empty listen address")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("empty database path")
	}
	c := eff.Config.Chat
	if c.RoomCap < 0 || c.ConversationCap < 0 || c.SpamHistory < 0 {
		return fmt.Errorf("chat caps must not be negative")
	}
	tls := eff.Config.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("tls requires both cert_file and key_file")
	}
	return nil
}
