package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rbelarbi/fatoora/internal/errs"
	"github.com/rbelarbi/fatoora/internal/models"
	"github.com/rbelarbi/fatoora/internal/sequence"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionInput carries the data for a new payment transaction.
type TransactionInput struct {
	Amount    decimal.Decimal      `json:"amount"`
	Method    models.PaymentMethod `json:"method"`
	Date      time.Time            `json:"date,omitempty"`
	Reference string               `json:"reference,omitempty"`
	BankName  string               `json:"bank_name,omitempty"`
	CheckDate *time.Time           `json:"check_date,omitempty"`
	Notes     string               `json:"notes,omitempty"`
}

// RecordTransaction creates a pending payment transaction against an invoice.
// For non-cash methods a PMT reference is allocated when the caller supplies
// none; the method-specific field requirements are then enforced.
func (l *Ledger) RecordTransaction(ctx context.Context, userID, invoiceID uint, in TransactionInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, errs.Validation("amount", "must_be_positive")
	}
	if !models.ValidPaymentMethod(in.Method) {
		return nil, errs.Validation("method", "invalid")
	}

	date := in.Date
	if date.IsZero() {
		date = l.now()
	}

	var txn models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := l.lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}

		reference := in.Reference
		if reference == "" && in.Method != models.PaymentMethodCash {
			year := date.Year()
			n, err := l.seq.Next(tx, sequence.ClassPayment, year)
			if err != nil {
				return err
			}
			reference = sequence.Format(sequence.PrefixPayment, year, n)
		}

		txn = models.Transaction{
			InvoiceID: invoice.ID,
			UserID:    userID,
			Date:      date,
			Amount:    in.Amount,
			Method:    in.Method,
			Status:    models.TransactionStatusPending,
			Reference: reference,
			BankName:  in.BankName,
			CheckDate: in.CheckDate,
			Notes:     in.Notes,
		}
		if err := validateMethodFields(&txn); err != nil {
			return err
		}
		if err := tx.Create(&txn).Error; err != nil {
			return errs.Storage("create transaction", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// CompleteTransaction marks a pending transaction as completed and re-derives
// the invoice's stored status from the amounts paid: paid when the paid sum
// covers the TTC total, partial when anything has been paid. Validation is
// re-run first; on failure neither the transaction nor the invoice changes.
func (l *Ledger) CompleteTransaction(ctx context.Context, userID, transactionID uint) (*models.Transaction, error) {
	var txn models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.loadTransaction(tx, userID, transactionID, &txn); err != nil {
			return err
		}
		if txn.Status != models.TransactionStatusPending {
			return errs.InvalidState("transaction", string(txn.Status), "complete")
		}
		if err := validateMethodFields(&txn); err != nil {
			return err
		}

		txn.Status = models.TransactionStatusCompleted
		if err := tx.Model(&txn).Update("status", txn.Status).Error; err != nil {
			return errs.Storage("update transaction status", err)
		}

		var invoice models.Invoice
		err := tx.Where("id = ?", txn.InvoiceID).Preload("Transactions").First(&invoice).Error
		if err != nil {
			return errs.Storage("load invoice", err)
		}
		paid := invoice.AmountPaid()
		switch {
		case paid.GreaterThanOrEqual(invoice.TotalTTC):
			invoice.Status = models.InvoiceStatusPaid
		case paid.IsPositive():
			invoice.Status = models.InvoiceStatusPartial
		default:
			return nil
		}
		if err := tx.Model(&invoice).Update("status", invoice.Status).Error; err != nil {
			return errs.Storage("update invoice status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// RejectTransaction marks a pending transaction as rejected, recording the
// optional reason. Rejection is terminal and leaves the invoice untouched.
func (l *Ledger) RejectTransaction(ctx context.Context, userID, transactionID uint, reason string) (*models.Transaction, error) {
	var txn models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.loadTransaction(tx, userID, transactionID, &txn); err != nil {
			return err
		}
		if txn.Status != models.TransactionStatusPending {
			return errs.InvalidState("transaction", string(txn.Status), "reject")
		}
		updates := map[string]any{"status": models.TransactionStatusRejected}
		if reason != "" {
			txn.Notes = "Rejected: " + reason
			updates["notes"] = txn.Notes
		}
		if err := tx.Model(&txn).Updates(updates).Error; err != nil {
			return errs.Storage("update transaction status", err)
		}
		txn.Status = models.TransactionStatusRejected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransaction loads a transaction scoped to its owner.
func (l *Ledger) GetTransaction(ctx context.Context, userID, transactionID uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := l.loadTransaction(l.db.WithContext(ctx), userID, transactionID, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (l *Ledger) loadTransaction(tx *gorm.DB, userID, transactionID uint, out *models.Transaction) error {
	err := tx.Where("id = ? AND user_id = ?", transactionID, userID).First(out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("transaction")
		}
		return errs.Storage("load transaction", err)
	}
	return nil
}

// validateMethodFields enforces the per-method field requirements: checks
// need a bank name, a check date, and a reference; transfers need a bank name
// and a reference; cash needs nothing further.
func validateMethodFields(txn *models.Transaction) error {
	switch txn.Method {
	case models.PaymentMethodCheck:
		if txn.BankName == "" {
			return errs.Validation("bank_name", "required")
		}
		if txn.CheckDate == nil {
			return errs.Validation("check_date", "required")
		}
		if txn.Reference == "" {
			return errs.Validation("reference", "required")
		}
	case models.PaymentMethodBankTransfer:
		if txn.BankName == "" {
			return errs.Validation("bank_name", "required")
		}
		if txn.Reference == "" {
			return errs.Validation("reference", "required")
		}
	}
	return nil
}
