package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/metrics"
)

func (h *handler) purchaseApplication(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	// Gifts address the recipient by public identifier.
	recipientID := ""
	if identifier := formValue(r, "recipient"); identifier != "" {
		recipient, err := h.app.Accounts.GetUserByIdentifier(r.Context(), identifier)
		if err != nil {
			writeServiceError(w, fmt.Errorf("recipient: %w", err))
			return
		}
		recipientID = recipient.ID
	}

	applicationID := formValue(r, "application_id")
	receipt, err := h.app.Commerce.PurchaseApplication(r.Context(), u.ID, recipientID, applicationID)
	metrics.RecordPurchase(commerce.PurchaseTypeApplication, err == nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptToView(receipt))
}

func (h *handler) purchaseIAP(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.app.Commerce.PurchaseIAP(r.Context(), currentUser(r).ID, formValue(r, "iap_id"))
	metrics.RecordPurchase(commerce.PurchaseTypeIAP, err == nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptToView(receipt))
}

func (h *handler) redeemKey(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.app.Commerce.RedeemKey(r.Context(), currentUser(r).ID, formValue(r, "key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptToView(receipt))
}

func (h *handler) ownership(w http.ResponseWriter, r *http.Request) {
	owned, err := h.app.Commerce.Owns(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"owned": owned})
}

func (h *handler) purchaseSource(w http.ResponseWriter, r *http.Request) {
	var (
		purchase commerce.Purchase
		txn      commerce.Transaction
		err      error
	)
	switch {
	case r.URL.Query().Get("purchase_id") != "":
		purchase, txn, err = h.app.Commerce.PurchaseSourceByID(r.Context(), r.URL.Query().Get("purchase_id"))
	case r.URL.Query().Get("application_id") != "":
		purchase, txn, err = h.app.Commerce.PurchaseSource(r.Context(), currentUser(r).ID, r.URL.Query().Get("application_id"))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("purchase_id or application_id is required"))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// The paying party is only exposed as a public identifier.
	payer, err := h.app.Accounts.GetUser(r.Context(), txn.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"purchase": purchaseToView(purchase),
		"payer":    publicUser(payer),
	})
}

func (h *handler) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.app.Commerce.Keys(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, keyToView(k))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) pendingIAPRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Commerce.PendingIAPRecords(r.Context(), currentUser(r).ID, r.URL.Query().Get("application_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]iapRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, iapRecordToView(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) acknowledgeIAPRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.app.Commerce.AcknowledgeIAPRecord(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, iapRecordToView(record))
}
