package models

import (
	"time"
)

// DefaultCategoryNames are seeded for every new account, in this order.
var DefaultCategoryNames = []string{"택시비", "접대비", "회식대", "회의음료"}

// Category is a user-defined expense category. Names are unique per user.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_categories_user_name" json:"name"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_categories_user_name;index" json:"userId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Category model
func (Category) TableName() string {
	return "categories"
}

// CategoryRef is the trimmed category shape embedded in usage responses
type CategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}
