package catalog

import (
	"context"
	"errors"

	"github.com/rbelarbi/fatoora/internal/errs"
	"github.com/rbelarbi/fatoora/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClientInput carries the data for creating or updating a client.
type ClientInput struct {
	Name          string          `json:"name"`
	ContactPerson string          `json:"contact_person,omitempty"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone,omitempty"`
	Email         string          `json:"email,omitempty"`
	NIF           string          `json:"nif"`
	NIS           string          `json:"nis"`
	RC            string          `json:"rc"`
	ART           string          `json:"art"`
	PaymentTerms  int             `json:"payment_terms,omitempty"`
	CreditLimit   decimal.Decimal `json:"credit_limit,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

func (in *ClientInput) validate() error {
	if in.Name == "" {
		return errs.Validation("name", "required")
	}
	if in.Address == "" {
		return errs.Validation("address", "required")
	}
	for field, value := range map[string]string{"nif": in.NIF, "nis": in.NIS, "rc": in.RC, "art": in.ART} {
		if value == "" {
			return errs.Validation(field, "required")
		}
	}
	if in.PaymentTerms < 0 {
		return errs.Validation("payment_terms", "must_not_be_negative")
	}
	if in.CreditLimit.IsNegative() {
		return errs.Validation("credit_limit", "must_not_be_negative")
	}
	return nil
}

// CreateClient registers a client. Each of the four business identifiers must
// be unique; payment terms default to 30 days and a zero credit limit means
// unlimited credit.
func (c *Catalog) CreateClient(ctx context.Context, userID uint, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	terms := in.PaymentTerms
	if terms == 0 {
		terms = 30
	}

	var client models.Client
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkIdentifierUnique(tx, &in, 0); err != nil {
			return err
		}
		client = models.Client{
			UserID:        userID,
			Name:          in.Name,
			ContactPerson: in.ContactPerson,
			Address:       in.Address,
			Phone:         in.Phone,
			Email:         in.Email,
			NIF:           in.NIF,
			NIS:           in.NIS,
			RC:            in.RC,
			ART:           in.ART,
			PaymentTerms:  terms,
			CreditLimit:   in.CreditLimit,
			Notes:         in.Notes,
			IsActive:      true,
		}
		if err := tx.Create(&client).Error; err != nil {
			return errs.Storage("create client", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// UpdateClient updates a client's fields, re-checking identifier uniqueness
// against all other clients.
func (c *Catalog) UpdateClient(ctx context.Context, userID, clientID uint, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var client models.Client
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", clientID, userID).First(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("client")
			}
			return errs.Storage("load client", err)
		}
		if err := checkIdentifierUnique(tx, &in, client.ID); err != nil {
			return err
		}
		client.Name = in.Name
		client.ContactPerson = in.ContactPerson
		client.Address = in.Address
		client.Phone = in.Phone
		client.Email = in.Email
		client.NIF = in.NIF
		client.NIS = in.NIS
		client.RC = in.RC
		client.ART = in.ART
		if in.PaymentTerms > 0 {
			client.PaymentTerms = in.PaymentTerms
		}
		client.CreditLimit = in.CreditLimit
		client.Notes = in.Notes
		if err := tx.Save(&client).Error; err != nil {
			return errs.Storage("update client", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// DeactivateClient retires a client without deleting its invoice history.
func (c *Catalog) DeactivateClient(ctx context.Context, userID, clientID uint) error {
	res := c.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ? AND user_id = ?", clientID, userID).
		Update("is_active", false)
	if res.Error != nil {
		return errs.Storage("deactivate client", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("client")
	}
	return nil
}

// GetClient loads one client scoped to its owner.
func (c *Catalog) GetClient(ctx context.Context, userID, clientID uint) (*models.Client, error) {
	var client models.Client
	err := c.db.WithContext(ctx).Where("id = ? AND user_id = ?", clientID, userID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("client")
		}
		return nil, errs.Storage("load client", err)
	}
	return &client, nil
}

// ListClients returns the supplier's clients ordered by name.
func (c *Catalog) ListClients(ctx context.Context, userID uint) ([]models.Client, error) {
	var clients []models.Client
	err := c.db.WithContext(ctx).Where("user_id = ?", userID).Order("name").Find(&clients).Error
	if err != nil {
		return nil, errs.Storage("list clients", err)
	}
	return clients, nil
}

// checkIdentifierUnique verifies no other client carries any of the four
// business identifiers. excludeID skips the client being updated.
func checkIdentifierUnique(tx *gorm.DB, in *ClientInput, excludeID uint) error {
	checks := []struct {
		field  string
		column string
		value  string
	}{
		{"nif", "nif", in.NIF},
		{"nis", "nis", in.NIS},
		{"rc", "rc", in.RC},
		{"art", "art", in.ART},
	}
	for _, chk := range checks {
		var count int64
		q := tx.Model(&models.Client{}).Where(chk.column+" = ?", chk.value)
		if excludeID != 0 {
			q = q.Where("id != ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return errs.Storage("check client "+chk.field, err)
		}
		if count > 0 {
			return errs.Validation(chk.field, "already_taken")
		}
	}
	return nil
}
