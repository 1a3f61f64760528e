package handlers

import (
	"net/http"

	"github.com/rbelarbi/fatoora/internal/auth"
	"github.com/rbelarbi/fatoora/internal/httpx"
	"github.com/rbelarbi/fatoora/internal/ledger"
)

// TransactionHandler exposes payment recording and settlement.
type TransactionHandler struct {
	ledger *ledger.Ledger
}

func NewTransactionHandler(l *ledger.Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

// Record creates a pending payment against the invoice in the path.
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	invoiceID, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var in ledger.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	txn, err := h.ledger.RecordTransaction(r.Context(), userID, invoiceID, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	txn, err := h.ledger.CompleteTransaction(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *TransactionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req rejectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	}
	txn, err := h.ledger.RejectTransaction(r.Context(), userID, id, req.Reason)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}
