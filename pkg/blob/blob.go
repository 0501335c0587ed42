package blob

import (
	"encoding/json"
	"fmt"

	"chatserv/pkg/logger"
	"chatserv/pkg/store"
	"chatserv/pkg/utils"
)

// Meta describes a stored blob. The chat core only ever sees the URL;
// bytes stay opaque.
type Meta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size"`
	TS   int64  `json:"time"`
	URL  string `json:"url,omitempty"`
}

// ErrTooLarge reports an upload over the configured size limit.
type ErrTooLarge struct {
	Size int64
	Max  int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("blob of %d bytes exceeds limit of %d", e.Size, e.Max)
}

// Save stores the blob bytes and metadata and returns the metadata.
// maxSize <= 0 disables the limit.
func Save(id, name, mime string, data []byte, ts, maxSize int64) (Meta, error) {
	if maxSize > 0 && int64(len(data)) > maxSize {
		return Meta{}, &ErrTooLarge{Size: int64(len(data)), Max: maxSize}
	}
	if id == "" {
		id = utils.GenBlobID()
	}
	meta := Meta{ID: id, Name: name, Mime: mime, Size: int64(len(data)), TS: ts}
	mb, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, err
	}
	if err := store.SaveRecord(store.BlobKey(id), data); err != nil {
		return Meta{}, err
	}
	if err := store.SaveRecord(store.BlobMetaKey(id), mb); err != nil {
		return Meta{}, err
	}
	logger.Info("blob_saved", "id", id, "name", name, "size", len(data))
	return meta, nil
}

// Load returns the blob bytes and metadata for id. A missing blob
// surfaces as a store not-found error.
func Load(id string) ([]byte, Meta, error) {
	data, err := store.GetRecord(store.BlobKey(id))
	if err != nil {
		return nil, Meta{}, err
	}
	var meta Meta
	mb, err := store.GetRecord(store.BlobMetaKey(id))
	if err == nil {
		_ = json.Unmarshal(mb, &meta)
	}
	if meta.ID == "" {
		meta.ID = id
	}
	return data, meta, nil
}
