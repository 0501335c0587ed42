package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"chatserv/pkg/blob"
	"chatserv/pkg/store"
	"chatserv/pkg/utils"
)

// RegisterBlobs registers the file attachment endpoints. Uploads are raw
// bytes with metadata carried in headers, not multipart forms.
func RegisterBlobs(r *mux.Router) {
	r.HandleFunc("/blobs", uploadBlob).Methods(http.MethodPost)
	r.HandleFunc("/blobs/{id}", serveBlob).Methods(http.MethodGet)
}

func uploadBlob(w http.ResponseWriter, r *http.Request) {
	limit := blobMaxSize
	var body io.Reader = r.Body
	if limit > 0 {
		// One extra byte so we can tell "exactly at the limit" apart
		// from "over it".
		body = io.LimitReader(r.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	name := r.Header.Get("X-Blob-Name")
	mime := r.Header.Get("X-Blob-Mime")
	if mime == "" {
		mime = r.Header.Get("Content-Type")
	}
	meta, err := blob.Save("", name, mime, data, time.Now().UTC().UnixMilli(), limit)
	if err != nil {
		var tooLarge *blob.ErrTooLarge
		if errors.As(err, &tooLarge) {
			utils.JSONError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
			return
		}
		writeActorError(w, r, err)
		return
	}
	meta.URL = "/v1/blobs/" + meta.ID
	_ = utils.JSONWrite(w, http.StatusCreated, meta)
}

func serveBlob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, meta, err := blob.Load(id)
	if err != nil {
		if store.IsNotFound(err) {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		writeActorError(w, r, err)
		return
	}
	if meta.Mime != "" {
		w.Header().Set("Content-Type", meta.Mime)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
