package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Usage is a single corporate card expense record.
// Amount is nullable and stored as an exact decimal.
type Usage struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	UsedAt     time.Time           `gorm:"not null;index" json:"usedAt"`
	Merchant   string              `gorm:"size:255;not null;default:''" json:"merchant"`
	Amount     decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"amount"`
	Purpose    string              `gorm:"size:500;not null" json:"purpose"`
	Memo       *string             `gorm:"type:text" json:"memo"`
	CategoryID *uint               `gorm:"index" json:"categoryId"`
	UserID     uint                `gorm:"not null;index" json:"userId"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`

	// Relations
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
	User     User      `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Usage model
func (Usage) TableName() string {
	return "card_usages"
}

// UsageResponse is the API shape of a usage, with its category name resolved
type UsageResponse struct {
	Usage
	Category *CategoryRef `json:"category"`
}

// ToResponse converts a usage (with Category preloaded) to its API shape
func (u *Usage) ToResponse() UsageResponse {
	resp := UsageResponse{Usage: *u}
	if u.Category != nil {
		resp.Category = &CategoryRef{ID: u.Category.ID, Name: u.Category.Name}
	}
	return resp
}

// CategoryName returns the category name or "" when unset
func (u *Usage) CategoryName() string {
	if u.Category == nil {
		return ""
	}
	return u.Category.Name
}
