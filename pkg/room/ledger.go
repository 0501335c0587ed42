package room

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"chatserv/pkg/logger"
	"chatserv/pkg/models"
	"chatserv/pkg/store"
)

// BanLedger is the global ban table, keyed by lowercased username. Bans
// apply across all rooms; room-scoped kicks live with each room's actor.
// Expired bans are treated as absent and deleted by whichever read
// observes them.
type BanLedger struct {
	mu     sync.Mutex
	now    func() int64
	loaded bool
	bans   map[string]models.BanRecord
}

// NewBanLedger returns a ledger backed by the opened store.
func NewBanLedger() *BanLedger {
	return &BanLedger{
		now:  func() int64 { return time.Now().UTC().UnixMilli() },
		bans: map[string]models.BanRecord{},
	}
}

func (l *BanLedger) load() {
	if l.loaded {
		return
	}
	l.loaded = true
	b, err := store.GetRecord(store.BansKey())
	if err != nil {
		if !store.IsNotFound(err) {
			logger.Error("ban_table_load_failed", "error", err)
		}
		return
	}
	if err := json.Unmarshal(b, &l.bans); err != nil {
		logger.Error("ban_table_corrupt", "error", err)
		l.bans = map[string]models.BanRecord{}
	}
}

func (l *BanLedger) persist() {
	b, err := json.Marshal(l.bans)
	if err != nil {
		logger.Error("ban_table_marshal_failed", "error", err)
		return
	}
	if err := store.SaveRecord(store.BansKey(), b); err != nil {
		logger.Error("ban_table_save_failed", "error", err)
	}
}

// Ban upserts a ban for target. durationMinutes <= 0 means permanent.
// Any prior ban for the same user is overwritten.
func (l *BanLedger) Ban(target, moderator, reason string, durationMinutes int) models.BanRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	now := l.now()
	rec := models.BanRecord{BannedBy: moderator, Reason: reason, TS: now}
	if durationMinutes > 0 {
		rec.Expires = now + int64(durationMinutes)*60_000
	}
	l.bans[strings.ToLower(target)] = rec
	l.persist()
	return rec
}

// Unban removes target's ban. Returns false when no record existed;
// that is an ordinary result, not an error.
func (l *BanLedger) Unban(target string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	key := strings.ToLower(target)
	if _, ok := l.bans[key]; !ok {
		return false
	}
	delete(l.bans, key)
	l.persist()
	return true
}

// IsBanned reports whether target is currently banned, and returns the
// recorded reason. An expired record is deleted on the spot and reported
// as absent.
func (l *BanLedger) IsBanned(target string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	key := strings.ToLower(target)
	rec, ok := l.bans[key]
	if !ok {
		return false, ""
	}
	if rec.Expired(l.now()) {
		delete(l.bans, key)
		l.persist()
		return false, ""
	}
	return true, rec.Reason
}

// Record returns the raw ban record for target, if one is stored. It
// does not apply lazy expiry; use IsBanned for the effective state.
func (l *BanLedger) Record(target string) (models.BanRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	rec, ok := l.bans[strings.ToLower(target)]
	return rec, ok
}

// Sweep deletes all expired bans and returns how many were removed.
func (l *BanLedger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	now := l.now()
	removed := 0
	for k, rec := range l.bans {
		if rec.Expired(now) {
			delete(l.bans, k)
			removed++
		}
	}
	if removed > 0 {
		l.persist()
	}
	return removed
}
