package handlers

import (
	"net/http"

	"github.com/rbelarbi/fatoora/internal/auth"
	"github.com/rbelarbi/fatoora/internal/catalog"
	"github.com/rbelarbi/fatoora/internal/credit"
	"github.com/rbelarbi/fatoora/internal/httpx"
	"github.com/rbelarbi/fatoora/internal/ledger"
)

// ClientHandler exposes catalog client operations, the advisory credit
// check, and the client's invoice views (overdue listing).
type ClientHandler struct {
	catalog *catalog.Catalog
	credit  *credit.Policy
	ledger  *ledger.Ledger
}

func NewClientHandler(c *catalog.Catalog, p *credit.Policy, l *ledger.Ledger) *ClientHandler {
	return &ClientHandler{catalog: c, credit: p, ledger: l}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	clients, err := h.catalog.ListClients(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var in catalog.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	client, err := h.catalog.CreateClient(r.Context(), userID, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	client, err := h.catalog.GetClient(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var in catalog.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	client, err := h.catalog.UpdateClient(r.Context(), userID, id, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := h.catalog.DeactivateClient(r.Context(), userID, id); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// Credit reports the client's credit standing: status band and whether a
// prospective amount (query param "amount") could be charged. Advisory only.
func (h *ClientHandler) Credit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	client, err := h.catalog.GetClient(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	status, err := h.credit.CreditStatus(client)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	purchases, err := h.ledger.TotalPurchases(client.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	resp := map[string]any{
		"credit_limit":    client.CreditLimit,
		"credit_status":   status,
		"total_purchases": purchases,
	}
	if raw := r.URL.Query().Get("amount"); raw != "" {
		amount, perr := parseAmount(raw)
		if perr != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_amount", nil)
			return
		}
		allowed, err := h.credit.CanCharge(client, amount)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		resp["can_charge"] = allowed
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// OverdueInvoices lists the client's invoices past their due date that are
// not yet fully paid.
func (h *ClientHandler) OverdueInvoices(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	// resolve the client first so an unknown id reads as 404, not an empty list
	client, err := h.catalog.GetClient(r.Context(), userID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	invoices, err := h.ledger.OverdueInvoices(r.Context(), userID, client.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices})
}
