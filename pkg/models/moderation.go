package models

// BanRecord is a global ban keyed by lowercased username.
// Expires == 0 means permanent.
type BanRecord struct {
	BannedBy string `json:"banned_by"`
	Reason   string `json:"reason,omitempty"`
	TS       int64  `json:"time"`
	Expires  int64  `json:"expires,omitempty"`
}

// KickRecord is a room-scoped temporary eviction. Expires is always set.
type KickRecord struct {
	KickedBy string `json:"kicked_by"`
	Reason   string `json:"reason,omitempty"`
	TS       int64  `json:"time"`
	Expires  int64  `json:"expires"`
}

// Expired reports whether the ban is past its expiry at the given
// epoch-millisecond instant. Permanent bans never expire.
func (b BanRecord) Expired(nowMillis int64) bool {
	return b.Expires != 0 && nowMillis >= b.Expires
}

// Expired reports whether the kick is past its expiry.
func (k KickRecord) Expired(nowMillis int64) bool {
	return nowMillis >= k.Expires
}
