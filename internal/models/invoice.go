package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus is the stored lifecycle status of an invoice. It is distinct
// from the derived PaymentStatus; the two can legitimately disagree (a
// validated invoice past its due date stays "validated" while its payment
// status reads "overdue") and callers choose which surface to act on.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusValidated InvoiceStatus = "validated"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// PaymentStatus is the derived, read-time payment view of an invoice.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusOverdue PaymentStatus = "overdue"
	PaymentStatusPending PaymentStatus = "pending"
)

// Invoice represents an invoice issued to a client, carrying the tax totals
// required by Algerian regulations (TVA 19%, TAP 2%).
// Implements the Ownable interface for ownership-based authorization.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Number is the unique document number, format PREFIX-YYYY-NNNNN.
	Number string `gorm:"size:50;not null;uniqueIndex" json:"number"`

	// Client relationship
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Dates. DueDate is derived from the client's payment terms when not
	// supplied explicitly; it may be null when the client had none.
	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`

	// Totals are always recomputed from the item set, never edited by hand.
	TotalHT  decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_ht"`
	TVA      decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"tva"`
	TAP      decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"tap"`
	TotalTTC decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_ttc"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Items and transactions are owned by the invoice and deleted with it.
	Items        []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// IsDraft returns true if the invoice is still editable.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// CanEdit returns true if items can still be added or removed.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// AmountPaid sums the amounts of the invoice's transactions. The sum covers
// every transaction regardless of its status, matching the historical ledger
// behavior. Requires Transactions to be loaded.
func (i *Invoice) AmountPaid() decimal.Decimal {
	total := decimal.Zero
	for _, txn := range i.Transactions {
		total = total.Add(txn.Amount)
	}
	return total
}

// AmountDue returns the amount still owed on the invoice.
func (i *Invoice) AmountDue() decimal.Decimal {
	return i.TotalTTC.Sub(i.AmountPaid())
}

// IsOverdue reports whether the invoice is past its due date and not paid.
// An invoice without a due date is never overdue.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusPaid || i.DueDate == nil {
		return false
	}
	return now.After(*i.DueDate)
}

// DerivedPaymentStatus computes the payment view of the invoice with the
// precedence paid > partial > overdue > pending.
func (i *Invoice) DerivedPaymentStatus(now time.Time) PaymentStatus {
	paid := i.AmountPaid()
	switch {
	case paid.GreaterThanOrEqual(i.TotalTTC):
		return PaymentStatusPaid
	case paid.IsPositive():
		return PaymentStatusPartial
	case i.IsOverdue(now):
		return PaymentStatusOverdue
	default:
		return PaymentStatusPending
	}
}

// InvoiceItem represents one product line on an invoice. UnitPrice snapshots
// the product's selling price at the time of sale and never changes when the
// product price later changes.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Description string          `gorm:"size:200" json:"description,omitempty"`
}

// Subtotal returns quantity times the captured unit price.
func (item *InvoiceItem) Subtotal() decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}
