package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"chatserv/pkg/auth"
	"chatserv/pkg/models"
	"chatserv/pkg/telemetry"
	"chatserv/pkg/utils"
)

// RegisterRooms registers the room-scoped endpoints.
func RegisterRooms(r *mux.Router) {
	r.HandleFunc("/rooms/{room}", getRoom).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{room}/messages", postMessage).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{room}/messages/{id}", deleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/rooms/{room}/heartbeat", heartbeat).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{room}/leave", leaveRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{room}/moderation", moderate).Methods(http.MethodPost)
}

// roomID extracts and sanitizes the room identifier. The ':' byte is
// reserved by the storage key layout.
func roomID(r *http.Request) (string, bool) {
	id := mux.Vars(r)["room"]
	if id == "" || strings.ContainsAny(id, ": ") {
		return "", false
	}
	return id, true
}

func getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	snap, err := reg.Room(id).GetSnapshot(auth.Identity(r))
	if err != nil {
		writeActorError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, snap)
}

func postMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if u := auth.Identity(r); u != "" {
		m.User = u
	}
	if strings.TrimSpace(m.User) == "" {
		utils.JSONError(w, http.StatusBadRequest, "user is required")
		return
	}
	stored, err := reg.Room(id).Post(m)
	if err != nil {
		writeActorError(w, r, err)
		return
	}
	telemetry.MessageAppended()
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageId": stored.ID,
	})
}

func deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	msgID := mux.Vars(r)["id"]
	requester := auth.Identity(r)
	if requester == "" {
		utils.JSONError(w, http.StatusBadRequest, "user is required")
		return
	}
	if _, err := reg.Room(id).Delete(msgID, requester); err != nil {
		writeActorError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	user := auth.Identity(r)
	if user == "" {
		utils.JSONError(w, http.StatusBadRequest, "user is required")
		return
	}
	users, err := reg.Room(id).Heartbeat(user)
	if err != nil {
		writeActorError(w, r, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"users":     users,
		"userCount": len(users),
	})
}

func leaveRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	user := auth.Identity(r)
	if user == "" {
		utils.JSONError(w, http.StatusBadRequest, "user is required")
		return
	}
	if err := reg.Room(id).Leave(user); err != nil {
		writeActorError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

// moderationRequest is the body of POST /rooms/{room}/moderation.
type moderationRequest struct {
	Action          string `json:"action"`
	Target          string `json:"target"`
	Reason          string `json:"reason,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func moderate(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var req moderationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		utils.JSONError(w, http.StatusBadRequest, "target is required")
		return
	}
	caller := auth.PrivilegedIdentity(r)
	actor := reg.Room(id)

	var err error
	result := map[string]interface{}{"success": true}
	switch req.Action {
	case "ban":
		err = actor.BanUser(caller, req.Target, req.Reason, req.DurationMinutes)
	case "unban":
		var existed bool
		existed, err = actor.UnbanUser(caller, req.Target)
		result["removed"] = existed
	case "kick":
		err = actor.KickUser(caller, req.Target, req.Reason)
	case "add_mod":
		err = actor.AddModerator(caller, req.Target)
	case "remove_mod":
		var existed bool
		existed, err = actor.RemoveModerator(caller, req.Target)
		result["removed"] = existed
	default:
		utils.JSONError(w, http.StatusBadRequest, "unknown moderation action")
		return
	}
	if err != nil {
		writeActorError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, result)
}
