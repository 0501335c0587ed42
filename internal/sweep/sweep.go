package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chatserv/pkg/config"
	"chatserv/pkg/logger"
	"chatserv/pkg/room"
	"chatserv/pkg/store"
	"chatserv/pkg/telemetry"
)

var storedReg *room.Registry

// SetRegistry stores the registry so tests (or admin triggers) can invoke
// deep sweeps on-demand.
func SetRegistry(reg *room.Registry) {
	storedReg = reg
}

// RunImmediate triggers a single deep sweep using the stored registry.
func RunImmediate() error {
	if storedReg == nil {
		return fmt.Errorf("no registry registered for sweep run")
	}
	return runDeep(storedReg)
}

// Start starts the expiry sweeper. It runs unless explicitly disabled;
// returns a cancel func.
//
// Two cadences run side by side: a fast ticker that sweeps only actors
// already resident in memory, and a cron-driven deep sweep that walks
// every room id in the store so rooms nobody has touched still shed
// expired kicks, stale presence, and old spam history.
func Start(ctx context.Context, reg *room.Registry, cfg config.SweepConfig) (context.CancelFunc, error) {
	if cfg.Disabled {
		logger.Info("sweep_disabled")
		return func() {}, nil
	}

	interval := cfg.Interval.Duration()
	if interval <= 0 {
		interval = config.DefaultSweepInterval
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = config.DefaultSweepCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweep_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cfg.Cron)
	}

	logger.Info("sweep_enabled", "interval", interval.String(), "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)

	go runTicker(ctx2, reg, interval)
	go runScheduler(ctx2, reg, cronExpr)

	return cancel, nil
}

// runTicker sweeps the live actors on a fixed interval. Each actor sweep
// runs as an ordinary serialized operation, so it never races in-flight
// requests.
func runTicker(ctx context.Context, reg *room.Registry, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := reg.SweepLive()
			if n > 0 {
				telemetry.SweepPurged(n)
				logger.Debug("sweep_live_purged", "entries", n)
			}
		}
	}
}

// runScheduler computes the next cron tick via gronx and sleeps until it,
// then runs a deep sweep over every stored room.
func runScheduler(ctx context.Context, reg *room.Registry, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweep_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if err := runDeep(reg); err != nil {
				logger.Error("sweep_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		}
	}
}

// runDeep walks every room id present in the store and sweeps it. Loading
// the actor through the registry means a room already live keeps its
// in-memory state; a cold room is hydrated, swept, and persisted.
func runDeep(reg *room.Registry) error {
	ids, err := store.ListRoomIDs()
	if err != nil {
		return err
	}
	total := 0
	for _, id := range ids {
		n, err := reg.Room(id).Sweep()
		if err != nil {
			logger.Warn("sweep_room_failed", "room", id, "error", err)
			continue
		}
		total += n
	}
	total += reg.Bans().Sweep()
	if total > 0 {
		telemetry.SweepPurged(total)
	}
	logger.Info("sweep_deep_done", "rooms", len(ids), "purged", total)
	return nil
}
