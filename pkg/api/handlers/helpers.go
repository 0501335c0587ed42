package handlers

import (
	"errors"
	"net/http"

	"chatserv/pkg/logger"
	"chatserv/pkg/room"
	"chatserv/pkg/telemetry"
	"chatserv/pkg/utils"
)

var (
	reg         *room.Registry
	blobMaxSize int64
)

// Init wires the handler package to the actor registry. Called once by
// api.Handler before routes are registered.
func Init(r *room.Registry, blobMax int64) {
	reg = r
	blobMaxSize = blobMax
}

// writeActorError maps core errors onto the response taxonomy:
// validation 400, rejection 403 with the reason verbatim, missing id
// 404, anything else a logged 500 without internal detail.
func writeActorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, room.ErrEmptyText):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, room.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	default:
		if rej, ok := room.AsRejection(err); ok {
			telemetry.Rejected(rej.Class)
			utils.JSONError(w, http.StatusForbidden, rej.Reason)
			return
		}
		logger.Error("request_failed", "path", r.URL.Path, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
	}
}
