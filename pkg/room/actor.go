package room

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatserv/pkg/logger"
	"chatserv/pkg/models"
	"chatserv/pkg/store"
	"chatserv/pkg/utils"
)

// Config holds the behavior tunables shared by every actor a registry
// creates.
type Config struct {
	RoomCap           int
	ConversationCap   int
	PresenceTimeout   time.Duration
	KickDuration      time.Duration
	SpamWindow        time.Duration
	SpamHistory       int
	DefaultModerators []string
}

// Snapshot is the full room view returned to a polling client.
type Snapshot struct {
	Messages    []models.Message `json:"messages"`
	Users       []string         `json:"users"`
	UserCount   int              `json:"userCount"`
	Moderators  []string         `json:"moderators"`
	IsModerator bool             `json:"isModerator"`
}

// Actor is the single writer for one room's (or private conversation's)
// state. Every exported method takes the actor mutex, so requests
// addressed to the same identifier execute strictly one after another
// while different identifiers proceed concurrently.
type Actor struct {
	mu   sync.Mutex
	id   string
	conv bool
	cfg  *Config
	bans *BanLedger
	now  func() int64

	loaded bool
	log    messageLog
	pres   presence
	spam   *spamWindows
	kicks  map[string]models.KickRecord
	mods   []string
}

func newActor(id string, conv bool, cfg *Config, bans *BanLedger) *Actor {
	return &Actor{
		id:    id,
		conv:  conv,
		cfg:   cfg,
		bans:  bans,
		now:   func() int64 { return time.Now().UTC().UnixMilli() },
		spam:  newSpamWindows(),
		kicks: map[string]models.KickRecord{},
	}
}

// ID returns the room or conversation identifier this actor owns.
func (a *Actor) ID() string { return a.id }

func (a *Actor) cap() int {
	if a.conv {
		return a.cfg.ConversationCap
	}
	return a.cfg.RoomCap
}

func (a *Actor) recordKey(kind string) string {
	if a.conv {
		return store.ConvKey(a.id)
	}
	return store.RoomKey(a.id, kind)
}

// ensureLoaded lazily reads the actor's records and idempotently seeds
// the moderator defaults on a room's first access.
func (a *Actor) ensureLoaded() error {
	if a.loaded {
		return nil
	}

	if err := loadRecord(a.recordKey(store.KindMessages), &a.log.msgs); err != nil {
		return err
	}
	if a.conv {
		a.loaded = true
		return nil
	}
	if err := loadRecord(store.RoomKey(a.id, store.KindPresence), &a.pres.entries); err != nil {
		return err
	}
	if err := loadRecord(store.RoomKey(a.id, store.KindKicks), &a.kicks); err != nil {
		return err
	}
	if a.kicks == nil {
		a.kicks = map[string]models.KickRecord{}
	}
	if err := loadRecord(store.RoomKey(a.id, store.KindSpam), &a.spam.byUser); err != nil {
		return err
	}
	if a.spam.byUser == nil {
		a.spam.byUser = map[string][]models.SpamEntry{}
	}

	// Moderator defaults are seeded only when no record exists yet, so
	// later removals survive restarts.
	b, err := store.GetRecord(store.RoomKey(a.id, store.KindModerators))
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &a.mods); err != nil {
			return fmt.Errorf("corrupt moderator record for %s: %w", a.id, err)
		}
	case store.IsNotFound(err):
		a.mods = append([]string{}, a.cfg.DefaultModerators...)
		if err := a.persistMods(); err != nil {
			return err
		}
	default:
		return err
	}

	a.loaded = true
	return nil
}

func loadRecord(key string, v interface{}) error {
	b, err := store.GetRecord(key)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("corrupt record %s: %w", key, err)
	}
	return nil
}

func (a *Actor) persistMessages() error {
	b, err := json.Marshal(a.log.msgs)
	if err != nil {
		return err
	}
	return store.SaveRecord(a.recordKey(store.KindMessages), b)
}

// persistPresence deletes the record instead of persisting an empty map.
func (a *Actor) persistPresence() error {
	key := store.RoomKey(a.id, store.KindPresence)
	if a.pres.empty() {
		return store.DeleteRecord(key)
	}
	b, err := json.Marshal(a.pres.entries)
	if err != nil {
		return err
	}
	return store.SaveRecord(key, b)
}

func (a *Actor) persistKicks() error {
	key := store.RoomKey(a.id, store.KindKicks)
	if len(a.kicks) == 0 {
		return store.DeleteRecord(key)
	}
	b, err := json.Marshal(a.kicks)
	if err != nil {
		return err
	}
	return store.SaveRecord(key, b)
}

func (a *Actor) persistSpam() error {
	key := store.RoomKey(a.id, store.KindSpam)
	if len(a.spam.byUser) == 0 {
		return store.DeleteRecord(key)
	}
	b, err := json.Marshal(a.spam.byUser)
	if err != nil {
		return err
	}
	return store.SaveRecord(key, b)
}

func (a *Actor) persistMods() error {
	b, err := json.Marshal(a.mods)
	if err != nil {
		return err
	}
	return store.SaveRecord(store.RoomKey(a.id, store.KindModerators), b)
}

// contentText is the string the spam filter and validation act on.
func contentText(m models.Message) string {
	switch m.Kind {
	case models.KindReply:
		if m.Reply != nil {
			return m.Reply.Body
		}
	case models.KindFile:
		if m.File != nil {
			return m.File.URL
		}
	}
	return m.Text
}

func validateMessage(m models.Message) error {
	switch m.Kind {
	case "":
		if strings.TrimSpace(m.Text) == "" {
			return ErrEmptyText
		}
	case models.KindReply:
		if m.Reply == nil || m.Reply.TargetID == "" || strings.TrimSpace(m.Reply.Body) == "" {
			return ErrEmptyText
		}
	case models.KindFile:
		if m.File == nil || m.File.URL == "" || m.File.Name == "" {
			return ErrEmptyText
		}
	default:
		return ErrEmptyText
	}
	return nil
}

func (a *Actor) systemMessage(text string) models.Message {
	return models.Message{
		ID:     utils.GenMsgID(),
		User:   models.SystemUser,
		Text:   text,
		TS:     a.now(),
		System: true,
	}
}

// isKickedLocked applies lazy expiry: an expired kick is deleted and
// reported as absent.
func (a *Actor) isKickedLocked(user string) bool {
	key := strings.ToLower(user)
	rec, ok := a.kicks[key]
	if !ok {
		return false
	}
	if rec.Expired(a.now()) {
		delete(a.kicks, key)
		if err := a.persistKicks(); err != nil {
			logger.Error("kick_purge_persist_failed", "room", a.id, "error", err)
		}
		return false
	}
	return true
}

func (a *Actor) isModeratorLocked(user string) bool {
	for _, m := range a.mods {
		if strings.EqualFold(m, user) {
			return true
		}
	}
	return false
}

func (a *Actor) requireModerator(caller string) error {
	if caller == "" || !a.isModeratorLocked(caller) {
		return Reject(ClassUnauthorized, "moderator privileges required")
	}
	return nil
}

// Post validates, spam-checks and appends a message, touching the
// author's presence. A client-supplied id that is already in the log is
// treated as an idempotency key: the stored message is returned and
// nothing is appended.
func (a *Actor) Post(m models.Message) (models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return models.Message{}, err
	}
	if err := validateMessage(m); err != nil {
		return models.Message{}, err
	}

	// The idempotency lookup runs before any moderation or spam check:
	// a retried post carries the same id and the same text, and must be
	// acknowledged with the stored message rather than tripping the
	// duplicate-text window.
	if m.ID != "" {
		if stored, ok := a.log.find(m.ID); ok {
			return stored, nil
		}
	}

	if !a.conv {
		if banned, reason := a.bans.IsBanned(m.User); banned {
			if reason != "" {
				return models.Message{}, Reject(ClassBanned, "you are banned: "+reason)
			}
			return models.Message{}, Reject(ClassBanned, "you are banned")
		}
		if a.isKickedLocked(m.User) {
			return models.Message{}, Reject(ClassKicked, "you are kicked from this room")
		}
		if !a.spam.check(m.User, contentText(m), a.now(), a.cfg.SpamWindow.Milliseconds(), a.cfg.SpamHistory) {
			return models.Message{}, Reject(ClassSpam, "duplicate message")
		}
	}

	if m.ID == "" {
		m.ID = utils.GenMsgID()
	}
	m.TS = a.now()
	m.System = false
	a.log.append(m, a.cap())

	if err := a.persistMessages(); err != nil {
		return models.Message{}, err
	}
	if !a.conv {
		a.pres.touch(m.User, a.now())
		if err := a.persistPresence(); err != nil {
			return models.Message{}, err
		}
		if err := a.persistSpam(); err != nil {
			return models.Message{}, err
		}
	}
	logger.Info("message_posted", "room", a.id, "id", m.ID, "user", m.User)
	return m, nil
}

// Messages returns the full log, oldest first.
func (a *Actor) Messages() ([]models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return nil, err
	}
	return a.log.list(), nil
}

// GetSnapshot purges expired presence and returns the room view for
// caller. An empty caller is an anonymous read.
func (a *Actor) GetSnapshot(caller string) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return Snapshot{}, err
	}
	users, changed := a.pres.active(a.now(), a.cfg.PresenceTimeout.Milliseconds())
	if changed {
		if err := a.persistPresence(); err != nil {
			return Snapshot{}, err
		}
	}
	if users == nil {
		users = []string{}
	}
	mods := append([]string{}, a.mods...)
	return Snapshot{
		Messages:    a.log.list(),
		Users:       users,
		UserCount:   len(users),
		Moderators:  mods,
		IsModerator: caller != "" && a.isModeratorLocked(caller),
	}, nil
}

// Heartbeat marks user active and returns the current roster. A kicked
// user's heartbeat is rejected without touching presence.
func (a *Actor) Heartbeat(user string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return nil, err
	}
	if a.isKickedLocked(user) {
		return nil, Reject(ClassKicked, "you are kicked from this room")
	}
	a.pres.touch(user, a.now())
	users, _ := a.pres.active(a.now(), a.cfg.PresenceTimeout.Milliseconds())
	if err := a.persistPresence(); err != nil {
		return nil, err
	}
	return users, nil
}

// Leave is an explicit departure; the presence record disappears when
// the roster empties.
func (a *Actor) Leave(user string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	if a.pres.remove(user) {
		return a.persistPresence()
	}
	return nil
}

// Delete removes a message. Permitted for the message's author or a
// moderator; a successful delete appends a system message recording who
// deleted whose message.
func (a *Actor) Delete(messageID, requester string) (models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return models.Message{}, err
	}
	m, ok := a.log.find(messageID)
	if !ok {
		return models.Message{}, ErrNotFound
	}
	if !strings.EqualFold(m.User, requester) && !a.isModeratorLocked(requester) {
		return models.Message{}, Reject(ClassUnauthorized, "not allowed to delete this message")
	}
	a.log.remove(messageID)
	note := fmt.Sprintf("%s deleted a message from %s", requester, m.User)
	a.log.append(a.systemMessage(note), a.cap())
	if err := a.persistMessages(); err != nil {
		return models.Message{}, err
	}
	logger.AuditEvent("message_deleted", "room", a.id, "by", requester, "author", m.User, "id", messageID)
	return m, nil
}

// IsModerator reports caller's privilege in this room.
func (a *Actor) IsModerator(user string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return false, err
	}
	return a.isModeratorLocked(user), nil
}

// BanUser bans target globally and records a system message in this
// room. durationMinutes <= 0 means permanent.
func (a *Actor) BanUser(caller, target, reason string, durationMinutes int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	if err := a.requireModerator(caller); err != nil {
		return err
	}
	a.bans.Ban(target, caller, reason, durationMinutes)
	note := fmt.Sprintf("%s was banned by %s", target, caller)
	if reason != "" {
		note += " (" + reason + ")"
	}
	a.log.append(a.systemMessage(note), a.cap())
	if err := a.persistMessages(); err != nil {
		return err
	}
	logger.AuditEvent("user_banned", "room", a.id, "target", target, "by", caller, "reason", reason, "minutes", durationMinutes)
	return nil
}

// UnbanUser lifts target's global ban. Returns false when no ban
// existed, which is a harmless result rather than an error.
func (a *Actor) UnbanUser(caller, target string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return false, err
	}
	if err := a.requireModerator(caller); err != nil {
		return false, err
	}
	ok := a.bans.Unban(target)
	logger.AuditEvent("user_unbanned", "room", a.id, "target", target, "by", caller, "existed", ok)
	return ok, nil
}

// KickUser evicts target from this room for the configured kick
// duration, removes them from presence, and records a system message.
func (a *Actor) KickUser(caller, target, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	if err := a.requireModerator(caller); err != nil {
		return err
	}
	now := a.now()
	a.kicks[strings.ToLower(target)] = models.KickRecord{
		KickedBy: caller,
		Reason:   reason,
		TS:       now,
		Expires:  now + a.cfg.KickDuration.Milliseconds(),
	}
	a.pres.remove(target)
	note := fmt.Sprintf("%s was kicked by %s", target, caller)
	if reason != "" {
		note += " (" + reason + ")"
	}
	a.log.append(a.systemMessage(note), a.cap())
	if err := a.persistKicks(); err != nil {
		return err
	}
	if err := a.persistPresence(); err != nil {
		return err
	}
	if err := a.persistMessages(); err != nil {
		return err
	}
	logger.AuditEvent("user_kicked", "room", a.id, "target", target, "by", caller, "reason", reason)
	return nil
}

// AddModerator grants target moderator privileges in this room.
func (a *Actor) AddModerator(caller, target string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return err
	}
	if err := a.requireModerator(caller); err != nil {
		return err
	}
	if a.isModeratorLocked(target) {
		return nil
	}
	a.mods = append(a.mods, target)
	return a.persistMods()
}

// RemoveModerator revokes target's privilege. Returns false when target
// was not a moderator.
func (a *Actor) RemoveModerator(caller, target string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return false, err
	}
	if err := a.requireModerator(caller); err != nil {
		return false, err
	}
	for i, m := range a.mods {
		if strings.EqualFold(m, target) {
			a.mods = append(a.mods[:i], a.mods[i+1:]...)
			return true, a.persistMods()
		}
	}
	return false, nil
}

// Sweep purges expired presence, kicks and spam entries. It takes the
// actor mutex like any other operation, preserving the single-writer
// invariant. Returns how many entries were removed.
func (a *Actor) Sweep() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(); err != nil {
		return 0, err
	}
	if a.conv {
		return 0, nil
	}
	removed := 0

	before := len(a.pres.entries)
	if _, changed := a.pres.active(a.now(), a.cfg.PresenceTimeout.Milliseconds()); changed {
		removed += before - len(a.pres.entries)
		if err := a.persistPresence(); err != nil {
			return removed, err
		}
	}

	now := a.now()
	kicksChanged := false
	for k, rec := range a.kicks {
		if rec.Expired(now) {
			delete(a.kicks, k)
			kicksChanged = true
			removed++
		}
	}
	if kicksChanged {
		if err := a.persistKicks(); err != nil {
			return removed, err
		}
	}

	if a.spam.prune(now, a.cfg.SpamWindow.Milliseconds()) {
		if err := a.persistSpam(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
