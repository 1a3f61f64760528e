// Package credit evaluates a client's standing against its credit limit.
//
// The policy is advisory: invoice creation never consults it on its own, the
// caller decides whether to act on the answer.
package credit

import (
	"github.com/rbelarbi/fatoora/internal/models"
	"github.com/shopspring/decimal"
)

// Status classifies how much of the credit limit is in use.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// Usage thresholds, in percent of the credit limit.
var (
	warningThreshold  = decimal.NewFromInt(75)
	exceededThreshold = decimal.NewFromInt(90)
	hundred           = decimal.NewFromInt(100)
)

// BalanceReader supplies the outstanding balance of a client: the TTC sum of
// its invoices that are validated but not yet fully paid. Implemented by the
// ledger.
type BalanceReader interface {
	OutstandingBalance(clientID uint) (decimal.Decimal, error)
}

// Policy answers credit questions for clients.
type Policy struct {
	balances BalanceReader
}

// NewPolicy returns a Policy reading balances from r.
func NewPolicy(r BalanceReader) *Policy {
	return &Policy{balances: r}
}

// CanCharge reports whether charging amount to the client keeps it within its
// credit limit. A zero limit means unlimited credit and always passes.
func (p *Policy) CanCharge(client *models.Client, amount decimal.Decimal) (bool, error) {
	if !client.HasCreditLimit() {
		return true, nil
	}
	balance, err := p.balances.OutstandingBalance(client.ID)
	if err != nil {
		return false, err
	}
	return balance.Add(amount).LessThanOrEqual(client.CreditLimit), nil
}

// CreditStatus classifies the client's credit usage: good below 75%, warning
// from 75% up to 90%, exceeded from 90%. A zero limit is always good.
func (p *Policy) CreditStatus(client *models.Client) (Status, error) {
	if !client.HasCreditLimit() {
		return StatusGood, nil
	}
	balance, err := p.balances.OutstandingBalance(client.ID)
	if err != nil {
		return "", err
	}
	usage := balance.Div(client.CreditLimit).Mul(hundred)
	switch {
	case usage.GreaterThanOrEqual(exceededThreshold):
		return StatusExceeded, nil
	case usage.GreaterThanOrEqual(warningThreshold):
		return StatusWarning, nil
	default:
		return StatusGood, nil
	}
}
