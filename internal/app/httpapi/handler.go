// Package httpapi exposes the storefront over HTTP. Requests are form
// encoded the way the desktop client sends them; responses are JSON.
// Authenticated routes read the session token from the X-Session-Id header.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/frogworks/storefront/internal/app"
	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/metrics"
	"github.com/frogworks/storefront/internal/app/services/auth"
	"github.com/frogworks/storefront/internal/app/services/clouddata"
	"github.com/frogworks/storefront/internal/app/services/commerce"
	"github.com/frogworks/storefront/internal/app/services/social"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/pkg/logger"
)

// SessionHeader carries the session token on authenticated routes.
const SessionHeader = "X-Session-Id"

type contextKey string

const (
	ctxUser    contextKey = "user"
	ctxSession contextKey = "session"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the storefront API router.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Account and session routes.
	api.HandleFunc("/verification/request", h.requestVerification).Methods(http.MethodPost)
	api.HandleFunc("/accounts", h.register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.authed(h.logout)).Methods(http.MethodPost)
	api.HandleFunc("/profile", h.authed(h.profile)).Methods(http.MethodGet)
	api.HandleFunc("/profile/photo", h.authed(h.setProfilePhoto)).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.authed(h.sessions)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.authed(h.closeSession)).Methods(http.MethodDelete)
	api.HandleFunc("/users/{identifier}", h.userByIdentifier).Methods(http.MethodGet)
	api.HandleFunc("/deposits", h.authed(h.deposit)).Methods(http.MethodPost)
	api.HandleFunc("/transactions", h.authed(h.transactions)).Methods(http.MethodGet)

	// Catalog routes.
	api.HandleFunc("/applications", h.listApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications", h.authed(h.createApplication)).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}", h.getApplication).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/versions", h.listVersions).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/versions", h.authed(h.addVersion)).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/latest", h.authed(h.setLatestVersion)).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/versions/{name}/download", h.authed(h.downloadVersion)).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/price", h.effectivePrice).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/sales", h.listSales).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/sales", h.authed(h.createSale)).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/sales/{saleID}", h.authed(h.deleteSale)).Methods(http.MethodDelete)
	api.HandleFunc("/applications/{id}/iaps", h.listIAPs).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/iaps", h.authed(h.createIAP)).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/keys", h.authed(h.createCreatorKeys)).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/keys/{keyID}", h.authed(h.revokeKey)).Methods(http.MethodDelete)

	// Commerce routes.
	api.HandleFunc("/purchases", h.authed(h.purchaseApplication)).Methods(http.MethodPost)
	api.HandleFunc("/purchases/iap", h.authed(h.purchaseIAP)).Methods(http.MethodPost)
	api.HandleFunc("/purchases/source", h.authed(h.purchaseSource)).Methods(http.MethodGet)
	api.HandleFunc("/keys", h.authed(h.listKeys)).Methods(http.MethodGet)
	api.HandleFunc("/keys/redeem", h.authed(h.redeemKey)).Methods(http.MethodPost)
	api.HandleFunc("/ownership/{id}", h.authed(h.ownership)).Methods(http.MethodGet)
	api.HandleFunc("/iap-records", h.authed(h.pendingIAPRecords)).Methods(http.MethodGet)
	api.HandleFunc("/iap-records/{id}/acknowledge", h.authed(h.acknowledgeIAPRecord)).Methods(http.MethodPost)

	// Social routes.
	api.HandleFunc("/friends", h.authed(h.listFriends)).Methods(http.MethodGet)
	api.HandleFunc("/friends/{identifier}", h.authed(h.removeFriend)).Methods(http.MethodDelete)
	api.HandleFunc("/friend-requests", h.authed(h.listFriendRequests)).Methods(http.MethodGet)
	api.HandleFunc("/friend-requests", h.authed(h.sendFriendRequest)).Methods(http.MethodPost)
	api.HandleFunc("/friend-requests/{id}/accept", h.authed(h.acceptFriendRequest)).Methods(http.MethodPost)
	api.HandleFunc("/friend-requests/{id}/decline", h.authed(h.declineFriendRequest)).Methods(http.MethodPost)
	api.HandleFunc("/invites", h.authed(h.listInvites)).Methods(http.MethodGet)
	api.HandleFunc("/invites", h.authed(h.sendInvite)).Methods(http.MethodPost)
	api.HandleFunc("/invites/{id}", h.authed(h.dismissInvite)).Methods(http.MethodDelete)

	// Cloud saves, photos and activity.
	api.HandleFunc("/cloud/{id}", h.authed(h.getCloudSave)).Methods(http.MethodGet)
	api.HandleFunc("/cloud/{id}", h.authed(h.putCloudSave)).Methods(http.MethodPut)
	api.HandleFunc("/cloud/{id}", h.authed(h.deleteCloudSave)).Methods(http.MethodDelete)
	api.HandleFunc("/applications/{id}/cloud", h.authed(h.purgeCloudSaves)).Methods(http.MethodDelete)
	api.HandleFunc("/photos", h.authed(h.uploadPhoto)).Methods(http.MethodPost)
	api.HandleFunc("/photos/{id}", h.getPhoto).Methods(http.MethodGet)
	api.HandleFunc("/play-sessions", h.authed(h.recordPlaySession)).Methods(http.MethodPost)
	api.HandleFunc("/play-sessions", h.authed(h.listPlaySessions)).Methods(http.MethodGet)
	api.HandleFunc("/playtime", h.authed(h.playtime)).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/play-sessions", h.authed(h.applicationPlaySessions)).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

// authed resolves the session header before calling next. The resolved user
// and session ride on the request context.
func (h *handler) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(SessionHeader)
		sess, u, err := h.app.Auth.Resolve(r.Context(), token)
		if err != nil {
			metrics.RecordSessionResolution(false)
			// A session whose user no longer resolves is a data problem,
			// not a credential one.
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, err)
			} else {
				writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated)
			}
			return
		}
		metrics.RecordSessionResolution(true)

		ctx := context.WithValue(r.Context(), ctxUser, u)
		ctx = context.WithValue(ctx, ctxSession, sess)
		next(w, r.WithContext(ctx))
	}
}

func currentUser(r *http.Request) user.User {
	u, _ := r.Context().Value(ctxUser).(user.User)
	return u
}

func currentSession(r *http.Request) session.Session {
	s, _ := r.Context().Value(ctxSession).(session.Session)
	return s
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

var errForbidden = fmt.Errorf("operation is not permitted")

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, errForbidden), errors.Is(err, commerce.ErrNotEntitled), errors.Is(err, clouddata.ErrNotEntitled):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, commerce.ErrPartialFailure):
		writeError(w, http.StatusInternalServerError, err)
	case errors.Is(err, commerce.ErrInsufficientFunds),
		errors.Is(err, commerce.ErrAlreadyOwned),
		errors.Is(err, commerce.ErrKeyRedeemed),
		errors.Is(err, commerce.ErrKeyCollision),
		errors.Is(err, social.ErrSelfRequest),
		errors.Is(err, social.ErrAlreadyFriends),
		errors.Is(err, social.ErrRequestExists),
		errors.Is(err, social.ErrAwaitingResponse),
		errors.Is(err, social.ErrNotFriends):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

// formValue trims the named field from an already parsed form.
func formValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
