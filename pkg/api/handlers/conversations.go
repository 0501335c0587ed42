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

// RegisterConversations registers the private-conversation endpoints.
// A conversation is addressed by its two participants in any order.
func RegisterConversations(r *mux.Router) {
	r.HandleFunc("/conversations/{userA}/{userB}", getConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{userA}/{userB}/messages", postConversationMessage).Methods(http.MethodPost)
}

func conversationUsers(r *http.Request) (string, string, bool) {
	vars := mux.Vars(r)
	a, b := vars["userA"], vars["userB"]
	if a == "" || b == "" || strings.ContainsAny(a, ":,") || strings.ContainsAny(b, ":,") {
		return "", "", false
	}
	return a, b, true
}

func getConversation(w http.ResponseWriter, r *http.Request) {
	a, b, ok := conversationUsers(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid participant")
		return
	}
	msgs, err := reg.Conversation(a, b).Messages()
	if err != nil {
		writeActorError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func postConversationMessage(w http.ResponseWriter, r *http.Request) {
	a, b, ok := conversationUsers(r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "invalid participant")
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
	if !strings.EqualFold(m.User, a) && !strings.EqualFold(m.User, b) {
		utils.JSONError(w, http.StatusForbidden, "sender is not a participant")
		return
	}
	stored, err := reg.Conversation(a, b).Post(m)
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
