package room

import (
	"chatserv/pkg/models"
)

// messageLog is a room's ordered, size-bounded message store. Oldest
// entries are evicted first; the survivors keep their relative order.
type messageLog struct {
	msgs []models.Message
}

// append stores msg and evicts from the front until the log is at or
// under cap.
func (l *messageLog) append(msg models.Message, cap int) {
	l.msgs = append(l.msgs, msg)
	if cap > 0 && len(l.msgs) > cap {
		l.msgs = l.msgs[len(l.msgs)-cap:]
	}
}

// find returns the message with the given id.
func (l *messageLog) find(id string) (models.Message, bool) {
	for _, m := range l.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// remove deletes the message with the given id, preserving order.
func (l *messageLog) remove(id string) (models.Message, bool) {
	for i, m := range l.msgs {
		if m.ID == id {
			l.msgs = append(l.msgs[:i], l.msgs[i+1:]...)
			return m, true
		}
	}
	return models.Message{}, false
}

// list returns a copy of the full log, oldest first.
func (l *messageLog) list() []models.Message {
	out := make([]models.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}
