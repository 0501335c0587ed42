package models

// SystemUser is the pseudo-author of actor-generated log entries
// (kick/ban/deletion notices).
const SystemUser = "system"

// Message kinds. An empty Kind means a plain text message.
const (
	KindReply = "reply"
	KindFile  = "file"
)

type Message struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Text string `json:"text,omitempty"`
	// TS is the server-assigned epoch-millisecond append time.
	TS     int64 `json:"time"`
	System bool  `json:"system,omitempty"`
	// Kind selects the message variant; Reply and File are populated for
	// their respective kinds and nil otherwise.
	Kind  string    `json:"kind,omitempty"`
	Reply *ReplyRef `json:"reply,omitempty"`
	File  *FileRef  `json:"file,omitempty"`
}

// ReplyRef points a reply message at the message it answers.
type ReplyRef struct {
	TargetID   string `json:"target_id"`
	TargetUser string `json:"target_user,omitempty"`
	Body       string `json:"body"`
}

// FileRef references an uploaded blob; the actor stores it opaquely.
type FileRef struct {
	Name string `json:"name"`
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url"`
}
