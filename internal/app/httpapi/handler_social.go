package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

func (h *handler) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	target, err := h.app.Accounts.GetUserByIdentifier(r.Context(), formValue(r, "identifier"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	req, err := h.app.Social.SendFriendRequest(r.Context(), currentUser(r).ID, target.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "date": req.Date})
}

func (h *handler) listFriendRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.app.Social.FriendRequests(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]friendRequestView, 0, len(requests))
	for _, req := range requests {
		from, err := h.app.Accounts.GetUser(r.Context(), req.FromUserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		views = append(views, friendRequestToView(req, from))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) acceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Social.AcceptFriendRequest(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *handler) declineFriendRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Social.DeclineFriendRequest(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (h *handler) listFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.app.Social.Friends(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]friendView, 0, len(friends))
	for _, f := range friends {
		other, err := h.app.Accounts.GetUser(r.Context(), f.OtherUserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		views = append(views, friendView{
			Identifier: other.Identifier,
			Username:   other.Username,
			Since:      f.Date,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	other, err := h.app.Accounts.GetUserByIdentifier(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.app.Social.RemoveFriend(r.Context(), currentUser(r).ID, other.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) sendInvite(w http.ResponseWriter, r *http.Request) {
	target, err := h.app.Accounts.GetUserByIdentifier(r.Context(), formValue(r, "identifier"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	details, err := parseJSONField(r, "details")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	inv, err := h.app.Social.SendInvite(r.Context(), currentUser(r).ID, target.ID, formValue(r, "application_id"), details)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": inv.ID, "date": inv.Date})
}

func (h *handler) listInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.app.Social.Invites(r.Context(), currentUser(r).ID, r.URL.Query().Get("application_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]inviteView, 0, len(invites))
	for _, inv := range invites {
		from, err := h.app.Accounts.GetUser(r.Context(), inv.FromUserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		views = append(views, inviteToView(inv, from))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) dismissInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Social.DismissInvite(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseJSONField decodes an optional JSON object carried in a form field.
func parseJSONField(r *http.Request, name string) (map[string]any, error) {
	raw := formValue(r, name)
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object", name)
	}
	return out, nil
}
