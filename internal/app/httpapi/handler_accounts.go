package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/services/accounts"
	"github.com/frogworks/storefront/internal/app/services/authz"
)

func (h *handler) requestVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Accounts.RequestVerification(r.Context(), formValue(r, "email")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(formValue(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("code must be numeric"))
		return
	}

	u, err := h.app.Accounts.Register(r.Context(), accounts.RegisterParams{
		Username: formValue(r, "username"),
		Name:     formValue(r, "name"),
		Email:    formValue(r, "email"),
		Password: r.FormValue("password"),
		Code:     code,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, privateUser(u))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	sess, u, err := h.app.Auth.Login(r.Context(),
		formValue(r, "username"),
		r.FormValue("password"),
		formValue(r, "hostname"),
		formValue(r, "mac_address"),
		formValue(r, "platform"),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.Token,
		"user":       privateUser(u),
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Auth.Logout(r.Context(), r.Header.Get(SessionHeader)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, privateUser(currentUser(r)))
}

func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.app.Auth.Sessions(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionToView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) closeSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sess, err := h.app.Auth.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !authz.CanActFor(u, sess.UserID) {
		writeError(w, http.StatusForbidden, errForbidden)
		return
	}
	if err := h.app.Auth.CloseSession(r.Context(), sess.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) userByIdentifier(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Accounts.GetUserByIdentifier(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	amount, err := money.Parse(formValue(r, "amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dep, err := h.app.Accounts.Deposit(r.Context(), currentUser(r).ID, amount, formValue(r, "source"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     dep.ID,
		"amount": money.Format(dep.Amount),
		"source": dep.Source,
		"date":   dep.Date,
	})
}

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.app.Commerce.Transactions(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]transactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, transactionToView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) setProfilePhoto(w http.ResponseWriter, r *http.Request) {
	p, err := h.readPhotoUpload(r, "avatars")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	u, err := h.app.Accounts.SetProfilePhoto(r.Context(), currentUser(r).ID, p.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, privateUser(u))
}
