// Package ledger owns the invoice lifecycle: creation with document
// numbering, item mutations with synchronous total recomputation, status
// transitions, and the reconciliation of payment transactions into invoice
// status. Every multi-step operation runs in a single database transaction,
// so a failure mid-sequence leaves no visible state change.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rbelarbi/fatoora/internal/errs"
	"github.com/rbelarbi/fatoora/internal/models"
	"github.com/rbelarbi/fatoora/internal/sequence"
	"github.com/rbelarbi/fatoora/internal/tax"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger coordinates invoice and transaction state.
type Ledger struct {
	db     *gorm.DB
	seq    *sequence.Generator
	prefix string
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithInvoicePrefix overrides the default FAC document-number prefix.
func WithInvoicePrefix(prefix string) Option {
	return func(l *Ledger) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns a Ledger backed by db.
func New(db *gorm.DB, seq *sequence.Generator, opts ...Option) *Ledger {
	l := &Ledger{
		db:     db,
		seq:    seq,
		prefix: sequence.PrefixInvoice,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ItemInput describes one invoice line to create.
type ItemInput struct {
	ProductID   uint   `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

// CreateInvoiceInput carries the data for a new invoice.
type CreateInvoiceInput struct {
	ClientID  uint        `json:"client_id"`
	Items     []ItemInput `json:"items"`
	IssueDate time.Time   `json:"issue_date,omitempty"`
	DueDate   *time.Time  `json:"due_date,omitempty"`
	Notes     string      `json:"notes,omitempty"`
}

// CreateInvoice creates a draft invoice for the client. The document number
// is allocated inside the persistence transaction, so an aborted create does
// not consume it. The due date defaults to the issue date plus the client's
// payment terms. Item unit prices snapshot the product selling price.
func (l *Ledger) CreateInvoice(ctx context.Context, userID uint, in CreateInvoiceInput) (*models.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, errs.Validation("items", "required")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, errs.Validation("quantity", "must_be_positive")
		}
	}

	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = l.now()
	}

	var invoice models.Invoice
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.Where("id = ? AND user_id = ?", in.ClientID, userID).First(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("client")
			}
			return errs.Storage("load client", err)
		}

		items := make([]models.InvoiceItem, 0, len(in.Items))
		lines := make([]tax.Line, 0, len(in.Items))
		for _, it := range in.Items {
			var product models.Product
			if err := tx.Where("id = ? AND user_id = ?", it.ProductID, userID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.Validation("product_id", "unknown")
				}
				return errs.Storage("load product", err)
			}
			items = append(items, models.InvoiceItem{
				ProductID:   product.ID,
				Quantity:    it.Quantity,
				UnitPrice:   product.SellingPrice,
				Description: it.Description,
			})
			lines = append(lines, tax.Line{Quantity: it.Quantity, UnitPrice: product.SellingPrice})
		}
		totals := tax.Compute(lines)

		year := issueDate.Year()
		n, err := l.seq.Next(tx, sequence.ClassInvoice, year)
		if err != nil {
			return err
		}

		dueDate := in.DueDate
		if dueDate == nil {
			d := issueDate.AddDate(0, 0, client.PaymentTerms)
			dueDate = &d
		}

		invoice = models.Invoice{
			UserID:    userID,
			ClientID:  client.ID,
			Number:    sequence.Format(l.prefix, year, n),
			IssueDate: issueDate,
			DueDate:   dueDate,
			Status:    models.InvoiceStatusDraft,
			TotalHT:   totals.HT,
			TVA:       totals.TVA,
			TAP:       totals.TAP,
			TotalTTC:  totals.TTC,
			Notes:     in.Notes,
			Items:     items,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return errs.Storage("create invoice", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// AddItem appends a line to a draft invoice, snapshotting the product selling
// price, and recomputes the invoice totals synchronously.
func (l *Ledger) AddItem(ctx context.Context, userID, invoiceID uint, in ItemInput) (*models.InvoiceItem, error) {
	if in.Quantity <= 0 {
		return nil, errs.Validation("quantity", "must_be_positive")
	}

	var item models.InvoiceItem
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := l.lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.CanEdit() {
			return errs.InvalidState("invoice", string(invoice.Status), "add item to")
		}

		var product models.Product
		if err := tx.Where("id = ? AND user_id = ?", in.ProductID, userID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.Validation("product_id", "unknown")
			}
			return errs.Storage("load product", err)
		}

		item = models.InvoiceItem{
			InvoiceID:   invoice.ID,
			ProductID:   product.ID,
			Quantity:    in.Quantity,
			UnitPrice:   product.SellingPrice,
			Description: in.Description,
		}
		if err := tx.Create(&item).Error; err != nil {
			return errs.Storage("create invoice item", err)
		}
		return l.recomputeTotals(tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes a line from a draft invoice and recomputes its totals.
func (l *Ledger) RemoveItem(ctx context.Context, userID, invoiceID, itemID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := l.lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.CanEdit() {
			return errs.InvalidState("invoice", string(invoice.Status), "remove item from")
		}
		res := tx.Where("id = ? AND invoice_id = ?", itemID, invoice.ID).Delete(&models.InvoiceItem{})
		if res.Error != nil {
			return errs.Storage("delete invoice item", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("invoice item")
		}
		return l.recomputeTotals(tx, invoice)
	})
}

// Validate promotes a draft invoice to validated. An invoice with no items
// cannot be validated.
func (l *Ledger) Validate(ctx context.Context, userID, invoiceID uint) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := l.lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != models.InvoiceStatusDraft {
			return errs.InvalidState("invoice", string(inv.Status), "validate")
		}
		var count int64
		if err := tx.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&count).Error; err != nil {
			return errs.Storage("count invoice items", err)
		}
		if count == 0 {
			return errs.Validation("items", "required")
		}
		inv.Status = models.InvoiceStatusValidated
		if err := tx.Model(inv).Update("status", inv.Status).Error; err != nil {
			return errs.Storage("update invoice status", err)
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Cancel marks a draft or validated invoice as cancelled. Paid, partially
// paid, and already cancelled invoices cannot be cancelled.
func (l *Ledger) Cancel(ctx context.Context, userID, invoiceID uint) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := l.lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != models.InvoiceStatusDraft && inv.Status != models.InvoiceStatusValidated {
			return errs.InvalidState("invoice", string(inv.Status), "cancel")
		}
		inv.Status = models.InvoiceStatusCancelled
		if err := tx.Model(inv).Update("status", inv.Status).Error; err != nil {
			return errs.Storage("update invoice status", err)
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Get loads an invoice with its client, items, and transactions.
func (l *Ledger) Get(ctx context.Context, userID, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := l.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		Preload("Client").
		Preload("Items.Product").
		Preload("Transactions").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("invoice")
		}
		return nil, errs.Storage("load invoice", err)
	}
	return &invoice, nil
}

// List returns the user's invoices, most recent first.
func (l *Ledger) List(ctx context.Context, userID uint, limit, offset int) ([]models.Invoice, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	var invoices []models.Invoice
	var total int64
	db := l.db.WithContext(ctx).Where("user_id = ?", userID)
	if err := db.Model(&models.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Storage("count invoices", err)
	}
	err := db.Preload("Client").Preload("Transactions").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, errs.Storage("list invoices", err)
	}
	return invoices, total, nil
}

// OutstandingBalance implements credit.BalanceReader: the TTC sum of the
// client's invoices that are validated or partially paid. Draft, paid, and
// cancelled invoices carry no outstanding exposure.
func (l *Ledger) OutstandingBalance(clientID uint) (decimal.Decimal, error) {
	var invoices []models.Invoice
	err := l.db.
		Where("client_id = ? AND status IN ?", clientID,
			[]models.InvoiceStatus{models.InvoiceStatusValidated, models.InvoiceStatusPartial}).
		Find(&invoices).Error
	if err != nil {
		return decimal.Zero, errs.Storage("load client invoices", err)
	}
	balance := decimal.Zero
	for _, inv := range invoices {
		balance = balance.Add(inv.TotalTTC)
	}
	return balance, nil
}

// TotalPurchases returns the TTC sum of the client's paid invoices: the
// client's realized purchase history, as opposed to its outstanding exposure.
func (l *Ledger) TotalPurchases(clientID uint) (decimal.Decimal, error) {
	var invoices []models.Invoice
	err := l.db.
		Where("client_id = ? AND status = ?", clientID, models.InvoiceStatusPaid).
		Find(&invoices).Error
	if err != nil {
		return decimal.Zero, errs.Storage("load client invoices", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalTTC)
	}
	return total, nil
}

// OverdueInvoices lists the client's invoices that are past their due date
// and not yet fully paid, most overdue first. Invoices without a due date are
// never overdue.
func (l *Ledger) OverdueInvoices(ctx context.Context, userID, clientID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND client_id = ? AND status IN ? AND due_date < ?",
			userID, clientID,
			[]models.InvoiceStatus{models.InvoiceStatusValidated, models.InvoiceStatusPartial},
			l.now()).
		Order("due_date ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, errs.Storage("list overdue invoices", err)
	}
	return invoices, nil
}

// lockInvoice loads an invoice scoped to its owner for mutation.
func (l *Ledger) lockInvoice(tx *gorm.DB, userID, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.Where("id = ? AND user_id = ?", invoiceID, userID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("invoice")
		}
		return nil, errs.Storage("load invoice", err)
	}
	return &invoice, nil
}

// recomputeTotals rebuilds the invoice totals from its current item set.
// Idempotent; called after every item mutation, before totals are read.
func (l *Ledger) recomputeTotals(tx *gorm.DB, invoice *models.Invoice) error {
	var items []models.InvoiceItem
	if err := tx.Where("invoice_id = ?", invoice.ID).Find(&items).Error; err != nil {
		return errs.Storage("load invoice items", err)
	}
	lines := make([]tax.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, tax.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	totals := tax.Compute(lines)
	err := tx.Model(invoice).Updates(map[string]any{
		"total_ht":  totals.HT,
		"tva":       totals.TVA,
		"tap":       totals.TAP,
		"total_ttc": totals.TTC,
	}).Error
	if err != nil {
		return errs.Storage("update invoice totals", err)
	}
	invoice.TotalHT = totals.HT
	invoice.TVA = totals.TVA
	invoice.TAP = totals.TAP
	invoice.TotalTTC = totals.TTC
	return nil
}
