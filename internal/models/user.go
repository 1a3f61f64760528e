package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a supplier account. Every business record in the system is
// owned by exactly one user; all reads and writes are scoped to the acting user.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email    string `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt hash

	// Supplier company information
	CompanyName string `gorm:"size:120" json:"company_name,omitempty"`
	Address     string `gorm:"size:200" json:"address,omitempty"`
	Phone       string `gorm:"size:20" json:"phone,omitempty"`

	// Algerian business identifiers of the supplier itself
	NIF string `gorm:"size:20;index" json:"nif,omitempty"`
	NIS string `gorm:"size:20" json:"nis,omitempty"`
	RC  string `gorm:"size:20" json:"rc,omitempty"`
	ART string `gorm:"size:20" json:"art,omitempty"`

	// Relations
	Products []Product `gorm:"foreignKey:UserID" json:"-"`
	Clients  []Client  `gorm:"foreignKey:UserID" json:"-"`
	Invoices []Invoice `gorm:"foreignKey:UserID" json:"-"`
}

// GetUserID implements the Ownable interface for authorization.
func (u *User) GetUserID() uint {
	return u.ID
}
