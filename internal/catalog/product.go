// Package catalog manages the product and client records the ledger draws
// from: selling prices, stock, payment terms, and credit limits.
package catalog

import (
	"context"
	"errors"

	"github.com/rbelarbi/fatoora/internal/errs"
	"github.com/rbelarbi/fatoora/internal/models"
	"github.com/rbelarbi/fatoora/internal/sequence"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Catalog provides product and client record operations scoped to a supplier.
type Catalog struct {
	db  *gorm.DB
	seq *sequence.Generator
}

// New returns a Catalog backed by db.
func New(db *gorm.DB, seq *sequence.Generator) *Catalog {
	return &Catalog{db: db, seq: seq}
}

// ProductInput carries the data for creating or updating a product.
type ProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Stock         int             `json:"stock"`
	MinStock      int             `json:"min_stock"`
	Category      string          `json:"category,omitempty"`
	Brand         string          `json:"brand,omitempty"`
}

// CreateProduct creates a product for the supplier. A PRD reference is
// allocated when none is supplied. Prices must be non-negative.
func (c *Catalog) CreateProduct(ctx context.Context, userID uint, year int, in ProductInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, errs.Validation("name", "required")
	}
	if in.PurchasePrice.IsNegative() || in.SellingPrice.IsNegative() {
		return nil, errs.Validation("price", "must_not_be_negative")
	}
	if in.Stock < 0 {
		return nil, errs.Validation("stock", "must_not_be_negative")
	}

	var product models.Product
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reference := in.Reference
		if reference == "" {
			n, err := c.seq.Next(tx, sequence.ClassProduct, year)
			if err != nil {
				return err
			}
			reference = sequence.Format(sequence.PrefixProduct, year, n)
		} else {
			var count int64
			err := tx.Model(&models.Product{}).Where("reference = ?", reference).Count(&count).Error
			if err != nil {
				return errs.Storage("check product reference", err)
			}
			if count > 0 {
				return errs.Validation("reference", "already_taken")
			}
		}
		minStock := in.MinStock
		if minStock == 0 {
			minStock = 5
		}
		product = models.Product{
			UserID:        userID,
			Name:          in.Name,
			Description:   in.Description,
			Reference:     reference,
			PurchasePrice: in.PurchasePrice,
			SellingPrice:  in.SellingPrice,
			Stock:         in.Stock,
			MinStock:      minStock,
			Category:      in.Category,
			Brand:         in.Brand,
			IsActive:      true,
		}
		if err := tx.Create(&product).Error; err != nil {
			return errs.Storage("create product", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct updates the mutable fields of a product. The reference is
// never changed after creation.
func (c *Catalog) UpdateProduct(ctx context.Context, userID, productID uint, in ProductInput) (*models.Product, error) {
	if in.PurchasePrice.IsNegative() || in.SellingPrice.IsNegative() {
		return nil, errs.Validation("price", "must_not_be_negative")
	}
	product, err := c.GetProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	product.Name = in.Name
	product.Description = in.Description
	product.PurchasePrice = in.PurchasePrice
	product.SellingPrice = in.SellingPrice
	product.MinStock = in.MinStock
	product.Category = in.Category
	product.Brand = in.Brand
	if err := c.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, errs.Storage("update product", err)
	}
	return product, nil
}

// StockOp names a stock adjustment direction.
type StockOp string

const (
	StockAdd    StockOp = "add"
	StockRemove StockOp = "remove"
)

// AdjustStock adds or removes quantity from a product's stock. Removing more
// than the current stock fails without changing anything.
func (c *Catalog) AdjustStock(ctx context.Context, userID, productID uint, quantity int, op StockOp) (*models.Product, error) {
	if quantity <= 0 {
		return nil, errs.Validation("quantity", "must_be_positive")
	}
	var product models.Product
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", productID, userID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("product")
			}
			return errs.Storage("load product", err)
		}
		switch op {
		case StockAdd:
			product.Stock += quantity
		case StockRemove:
			if product.Stock < quantity {
				return errs.Validation("quantity", "insufficient_stock")
			}
			product.Stock -= quantity
		default:
			return errs.Validation("operation", "invalid")
		}
		if err := tx.Model(&product).Update("stock", product.Stock).Error; err != nil {
			return errs.Storage("update product stock", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeactivateProduct retires a product. Products are never hard-deleted so
// historical invoice lines keep resolving.
func (c *Catalog) DeactivateProduct(ctx context.Context, userID, productID uint) error {
	res := c.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND user_id = ?", productID, userID).
		Update("is_active", false)
	if res.Error != nil {
		return errs.Storage("deactivate product", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product")
	}
	return nil
}

// GetProduct loads one product scoped to its owner.
func (c *Catalog) GetProduct(ctx context.Context, userID, productID uint) (*models.Product, error) {
	var product models.Product
	err := c.db.WithContext(ctx).Where("id = ? AND user_id = ?", productID, userID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("product")
		}
		return nil, errs.Storage("load product", err)
	}
	return &product, nil
}

// ListProducts returns the supplier's products ordered by name.
func (c *Catalog) ListProducts(ctx context.Context, userID uint) ([]models.Product, error) {
	var products []models.Product
	err := c.db.WithContext(ctx).Where("user_id = ?", userID).Order("name").Find(&products).Error
	if err != nil {
		return nil, errs.Storage("list products", err)
	}
	return products, nil
}
