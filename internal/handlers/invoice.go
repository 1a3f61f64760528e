package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rbelarbi/fatoora/internal/auth"
	"github.com/rbelarbi/fatoora/internal/httpx"
	"github.com/rbelarbi/fatoora/internal/ledger"
	"github.com/rbelarbi/fatoora/internal/models"
)

// InvoiceHandler exposes the invoice lifecycle over HTTP.
type InvoiceHandler struct {
	ledger *ledger.Ledger
}

func NewInvoiceHandler(l *ledger.Ledger) *InvoiceHandler {
	return &InvoiceHandler{ledger: l}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit := 20
	offset := (page - 1) * limit

	invoices, total, err := h.ledger.List(r.Context(), userID, limit, offset)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": invoices,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var in ledger.CreateInvoiceInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoice, err := h.ledger.CreateInvoice(r.Context(), userID, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// invoiceView decorates an invoice with its derived payment readers.
type invoiceView struct {
	*models.Invoice
	AmountPaid    string               `json:"amount_paid"`
	AmountDue     string               `json:"amount_due"`
	IsOverdue     bool                 `json:"is_overdue"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	invoice, err := h.ledger.Get(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	now := time.Now()
	httpx.JSON(w, http.StatusOK, invoiceView{
		Invoice:       invoice,
		AmountPaid:    invoice.AmountPaid().String(),
		AmountDue:     invoice.AmountDue().String(),
		IsOverdue:     invoice.IsOverdue(now),
		PaymentStatus: invoice.DerivedPaymentStatus(now),
	})
}

func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var in ledger.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	item, err := h.ledger.AddItem(r.Context(), userID, id, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	itemID, okItem := pathID(r, "item_id")
	if !ok || !okItem {
		http.NotFound(w, r)
		return
	}
	if err := h.ledger.RemoveItem(r.Context(), userID, id, itemID); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *InvoiceHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	invoice, err := h.ledger.Validate(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	invoice, err := h.ledger.Cancel(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}
