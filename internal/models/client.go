package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Client represents a business customer (B2B) with the registry identifiers
// required on Algerian commercial documents.
// Implements the Ownable interface for ownership-based authorization.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this client (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Client information
	Name          string `gorm:"size:120;not null;index" json:"name"`
	ContactPerson string `gorm:"size:100" json:"contact_person,omitempty"`
	Address       string `gorm:"size:200;not null" json:"address"`
	Phone         string `gorm:"size:20" json:"phone,omitempty"`
	Email         string `gorm:"size:120" json:"email,omitempty"`

	// Algerian business identifiers, treated as opaque unique strings.
	NIF string `gorm:"size:20;not null;uniqueIndex" json:"nif"`
	NIS string `gorm:"size:20;not null;uniqueIndex" json:"nis"`
	RC  string `gorm:"size:20;not null;uniqueIndex" json:"rc"`
	ART string `gorm:"size:20;not null;uniqueIndex" json:"art"`

	// PaymentTerms is the number of days the client has to pay an invoice.
	PaymentTerms int `gorm:"default:30" json:"payment_terms"`
	// CreditLimit of zero means unlimited credit, not zero credit.
	CreditLimit decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"credit_limit"`

	Notes    string `gorm:"type:text" json:"notes,omitempty"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Invoices []Invoice `gorm:"foreignKey:ClientID" json:"invoices,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Client) GetUserID() uint {
	return c.UserID
}

// HasCreditLimit reports whether the client has a finite credit limit.
func (c *Client) HasCreditLimit() bool {
	return c.CreditLimit.IsPositive()
}
