package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatserv/pkg/api/handlers"
	"chatserv/pkg/room"
	"chatserv/pkg/utils"
)

// Handler returns the versioned API router. The registry owns every
// room/conversation actor; blobMaxSize bounds uploads (0 disables).
func Handler(reg *room.Registry, blobMaxSize int64) http.Handler {
	handlers.Init(reg, blobMaxSize)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		utils.JSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		utils.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterRooms(v1)
	handlers.RegisterConversations(v1)
	handlers.RegisterBlobs(v1)
	return r
}
