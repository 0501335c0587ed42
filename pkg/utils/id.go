package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenMsgID returns a room-unique message id. The millisecond timestamp
// keeps ids roughly sortable; the uuid suffix breaks same-millisecond ties.
func GenMsgID() string {
	return fmt.Sprintf("msg-%d-%s", time.Now().UTC().UnixMilli(), shortUUID())
}

// GenBlobID returns an id for an uploaded blob.
func GenBlobID() string {
	return fmt.Sprintf("blob-%d-%s", time.Now().UTC().UnixMilli(), shortUUID())
}

func shortUUID() string {
	u := uuid.New().String()
	return u[:8]
}
