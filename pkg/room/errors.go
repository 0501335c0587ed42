package room

import "errors"

// ErrNotFound reports a missing message id.
var ErrNotFound = errors.New("message not found")

// ErrEmptyText reports a post with no usable content.
var ErrEmptyText = errors.New("message text is required")

// Rejection classes, used as coarse observability labels. The Reason
// string carries the human-readable detail.
const (
	ClassBanned       = "banned"
	ClassKicked       = "kicked"
	ClassSpam         = "spam"
	ClassUnauthorized = "unauthorized"
)

// Rejection is a forbidden-class refusal (ban, kick, spam, missing
// privilege). The reason string is safe to show to the client verbatim.
type Rejection struct {
	Class  string
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Reject builds a Rejection with the given class and reason.
func Reject(class, reason string) error {
	return &Rejection{Class: class, Reason: reason}
}

// AsRejection reports whether err is a forbidden-class refusal.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
