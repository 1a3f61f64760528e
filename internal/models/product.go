package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a product a supplier sells to clients, with the pricing
// and stock information needed for invoicing.
// Implements the Ownable interface for ownership-based authorization.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this product (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Product information
	Name        string `gorm:"size:120;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	// Reference is globally unique. Auto-assigned (PRD-YYYY-NNNNN) when not
	// supplied at creation, immutable afterwards.
	Reference string `gorm:"size:50;not null;uniqueIndex" json:"reference"`

	// Pricing. Purchase and selling prices are independent fields; margin and
	// profit are always derived, never stored.
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"selling_price"`

	// Inventory
	Stock    int `gorm:"default:0" json:"stock"`
	MinStock int `gorm:"default:5" json:"min_stock"`

	// Optional categorization
	Category string `gorm:"size:50" json:"category,omitempty"`
	Brand    string `gorm:"size:50" json:"brand,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// GetUserID implements the Ownable interface for authorization.
func (p *Product) GetUserID() uint {
	return p.UserID
}

// Profit returns the profit amount per unit.
func (p *Product) Profit() decimal.Decimal {
	return p.SellingPrice.Sub(p.PurchasePrice)
}

// Margin returns the profit margin as a percentage of the purchase price.
// A product with no purchase price has no meaningful margin and returns zero.
func (p *Product) Margin() decimal.Decimal {
	if !p.PurchasePrice.IsPositive() {
		return decimal.Zero
	}
	return p.Profit().Div(p.PurchasePrice).Mul(decimal.NewFromInt(100))
}

// StockValue returns the value of the current stock at purchase price.
func (p *Product) StockValue() decimal.Decimal {
	return p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// PotentialProfit returns the profit the current stock would yield if sold.
func (p *Product) PotentialProfit() decimal.Decimal {
	return p.Profit().Mul(decimal.NewFromInt(int64(p.Stock)))
}

// IsLowStock reports whether the stock has reached the alert threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}
