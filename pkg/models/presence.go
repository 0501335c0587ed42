package models

// PresenceEntry records a user's last heartbeat in a room.
type PresenceEntry struct {
	Username string `json:"username"`
	LastSeen int64  `json:"last_seen"`
}

// SpamEntry is one recent-message record in a user's spam window.
type SpamEntry struct {
	Text string `json:"text"`
	TS   int64  `json:"time"`
}
