package store

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"

	"chatserv/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string
)

// Key namespaces. Each room and conversation owns a sub-namespace of
// typed records rather than sharing one ad hoc global table.
const (
	roomPrefix = "room:"
	convPrefix = "conv:"
	bansKey    = "mod:bans"
	blobPrefix = "blob:"
)

// Record kinds stored under a room namespace.
const (
	KindMessages   = "messages"
	KindPresence   = "presence"
	KindKicks      = "kicks"
	KindSpam       = "spam"
	KindModerators = "mods"
)

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// RoomKey returns the storage key for a room record of the given kind.
func RoomKey(roomID, kind string) string {
	return roomPrefix + roomID + ":" + kind
}

// ConvKey returns the storage key for a private-conversation message log.
func ConvKey(convID string) string {
	return convPrefix + convID + ":" + KindMessages
}

// BansKey returns the storage key of the global ban table.
func BansKey() string { return bansKey }

// BlobKey returns the storage key for blob content; BlobMetaKey the key
// for its metadata record.
func BlobKey(id string) string     { return blobPrefix + id + ":data" }
func BlobMetaKey(id string) string { return blobPrefix + id + ":meta" }

// SaveRecord writes a record synchronously. Completion implies the value
// is durable.
func SaveRecord(key string, data []byte) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_record_failed", "key", key, "error", err)
		return err
	}
	logger.Debug("record_saved", "key", key, "len", len(data))
	return nil
}

// GetRecord returns the stored value for key, or an error satisfying
// IsNotFound when the key is absent.
func GetRecord(key string) ([]byte, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

// DeleteRecord removes a record; deleting an absent key is not an error.
func DeleteRecord(key string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete([]byte(key), pebble.Sync); err != nil {
		logger.Error("delete_record_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}

// ListRoomIDs returns the distinct room identifiers that have any stored
// record. Used by the deep sweep to reach rooms without a live actor.
// Conversations are deliberately not enumerable: their actors hold no
// expiring state, so no sweep ever needs to walk them.
func ListRoomIDs() ([]string, error) {
	return listNamespaceIDs(roomPrefix)
}

func listNamespaceIDs(prefix string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	pfx := []byte(prefix)
	seen := map[string]struct{}{}
	var out []string
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		k := string(iter.Key()[len(pfx):])
		// key shape: <id>:<kind>; the id itself never contains ':'
		// because identifiers are sanitized at the router.
		if i := strings.LastIndex(k, ":"); i > 0 {
			id := k[:i]
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out, iter.Error()
}
