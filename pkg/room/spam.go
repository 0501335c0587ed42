package room

import (
	"chatserv/pkg/models"
)

// spamWindows holds each user's short ring of recent messages, used only
// to reject identical-text repeats inside the window. This is a
// cooperative pre-check, not a rate limiter: distinct texts pass at any
// velocity.
type spamWindows struct {
	byUser map[string][]models.SpamEntry
}

func newSpamWindows() *spamWindows {
	return &spamWindows{byUser: map[string][]models.SpamEntry{}}
}

// check discards entries older than the window, rejects when a surviving
// entry matches text exactly, and on allow records {text, now} truncated
// to the last maxHistory entries.
func (s *spamWindows) check(user, text string, now, windowMillis int64, maxHistory int) bool {
	recent := s.byUser[user][:0]
	for _, e := range s.byUser[user] {
		if now-e.TS < windowMillis {
			recent = append(recent, e)
		}
	}
	for _, e := range recent {
		if e.Text == text {
			s.byUser[user] = recent
			return false
		}
	}
	recent = append(recent, models.SpamEntry{Text: text, TS: now})
	if len(recent) > maxHistory {
		recent = recent[len(recent)-maxHistory:]
	}
	s.byUser[user] = recent
	return true
}

// prune drops entries older than the window across all users and removes
// users whose window emptied. Returns whether anything changed.
func (s *spamWindows) prune(now, windowMillis int64) bool {
	changed := false
	for user, entries := range s.byUser {
		kept := entries[:0]
		for _, e := range entries {
			if now-e.TS < windowMillis {
				kept = append(kept, e)
			} else {
				changed = true
			}
		}
		if len(kept) == 0 {
			delete(s.byUser, user)
		} else {
			s.byUser[user] = kept
		}
	}
	return changed
}
