package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a marketplace account. Gold is the spendable balance, kept to two
// fractional digits and never allowed below zero by the store layer.
type User struct {
	gorm.Model
	Username string          `gorm:"uniqueIndex;size:20;not null"`
	Password string          `gorm:"size:255"`
	Gold     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
}

// Item is a listing offered for sale. ImageRef is relative to the image
// storage root, never a client-supplied absolute path. Items are immutable
// after creation and removed exactly once, by the buy transaction.
type Item struct {
	gorm.Model
	Name     string          `gorm:"size:50;not null"`
	Price    decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ImageRef string          `gorm:"size:250;not null"`
	UserID   uint            `gorm:"index;not null"`
}

// ItemListing is the dashboard read model: one page row with the owner's
// username joined in.
type ItemListing struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image_ref"`
	OwnerName string          `json:"owner_name"`
}
