package room

import (
	"strings"

	"chatserv/pkg/models"
)

// presence is a room's roster of recently seen users. Entries keep
// insertion order so a response lists users stably. Not safe for
// concurrent use; the owning actor serializes access.
type presence struct {
	entries []models.PresenceEntry
}

// touch records a heartbeat for user at now, inserting the user at the
// end on first contact.
func (p *presence) touch(user string, now int64) {
	for i := range p.entries {
		if strings.EqualFold(p.entries[i].Username, user) {
			p.entries[i].LastSeen = now
			return
		}
	}
	p.entries = append(p.entries, models.PresenceEntry{Username: user, LastSeen: now})
}

// active filters out entries older than timeout, keeps the survivors
// (purge-on-read), and returns their usernames in insertion order.
// The second result reports whether anything was purged.
func (p *presence) active(now, timeoutMillis int64) ([]string, bool) {
	kept := p.entries[:0]
	var users []string
	changed := false
	for _, e := range p.entries {
		if now-e.LastSeen < timeoutMillis {
			kept = append(kept, e)
			users = append(users, e.Username)
		} else {
			changed = true
		}
	}
	p.entries = kept
	return users, changed
}

// remove deletes user's entry. Returns false if the user was not present.
func (p *presence) remove(user string) bool {
	for i := range p.entries {
		if strings.EqualFold(p.entries[i].Username, user) {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (p *presence) empty() bool { return len(p.entries) == 0 }
