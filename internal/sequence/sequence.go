// Package sequence issues per-year document numbers for the auto-numbered
// document classes (invoices, product references, payment references).
//
// Allocation is an atomic upsert-increment on a counter row, so no two
// callers can ever receive the same value for the same (class, year) key,
// even under concurrent invoice creation. Numbers are gap-free as long as
// the surrounding transaction commits; an aborted create rolls the counter
// back with everything else.
package sequence

import (
	"fmt"

	"github.com/rbelarbi/fatoora/internal/errs"
	"gorm.io/gorm"
)

// Document classes with their own independent per-year sequences.
const (
	ClassInvoice = "invoice"
	ClassProduct = "product"
	ClassPayment = "payment"
)

// Default number prefixes per document class.
const (
	PrefixInvoice = "FAC"
	PrefixProduct = "PRD"
	PrefixPayment = "PMT"
)

// Generator allocates sequence numbers against the sequence_counters table.
type Generator struct{}

// NewGenerator returns a Generator.
func NewGenerator() *Generator { return &Generator{} }

// Next returns the next number for (class, year), starting at 1. Call it
// inside the transaction that persists the numbered document, so the
// allocation commits or rolls back atomically with it. The increment and the
// read are one statement, so two callers can never observe the same value
// even when invoked outside a transaction.
func (g *Generator) Next(tx *gorm.DB, class string, year int) (int64, error) {
	var value int64
	err := tx.Raw(
		`INSERT INTO sequence_counters (document_class, year, value) VALUES (?, ?, 1)
		 ON CONFLICT (document_class, year)
		 DO UPDATE SET value = sequence_counters.value + 1
		 RETURNING value`,
		class, year,
	).Scan(&value).Error
	if err != nil {
		return 0, errs.Storage("allocate sequence "+class, err)
	}
	return value, nil
}

// Format renders a document number as PREFIX-YYYY-NNNNN. The sequence part is
// zero-padded to five digits and widens beyond that instead of truncating.
func Format(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}
