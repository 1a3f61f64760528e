package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle status of a payment transaction.
// Completed and rejected are terminal.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

// Transaction represents a payment made by a client against an invoice.
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	// UserID is the supplier recording the payment.
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Date   time.Time         `gorm:"not null" json:"date"`
	Amount decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method PaymentMethod     `gorm:"size:50;not null" json:"method"`
	Status TransactionStatus `gorm:"size:20;default:'pending'" json:"status"`

	// Reference is auto-assigned (PMT-YYYY-NNNNN) for non-cash methods when
	// not supplied by the caller.
	Reference string `gorm:"size:100" json:"reference,omitempty"`

	// Bank details, required for checks and transfers.
	BankName  string     `gorm:"size:100" json:"bank_name,omitempty"`
	CheckDate *time.Time `json:"check_date,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (t *Transaction) GetUserID() uint {
	return t.UserID
}

// IsTerminal reports whether the transaction has reached a final status.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusRejected
}

// IsCheckPayment returns true if the payment is by check.
func (t *Transaction) IsCheckPayment() bool {
	return t.Method == PaymentMethodCheck
}

// IsBankTransfer returns true if the payment is by bank transfer.
func (t *Transaction) IsBankTransfer() bool {
	return t.Method == PaymentMethodBankTransfer
}

// IsCash returns true if the payment is in cash.
func (t *Transaction) IsCash() bool {
	return t.Method == PaymentMethodCash
}
