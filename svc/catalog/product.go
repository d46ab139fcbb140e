package catalog

import (
	"math"
	"time"
)

// Product is a catalog item as stored in the products collection.
// Timestamps are unix seconds.
type Product struct {
	ID                 string   `bson:"-" json:"id"`
	Name               string   `bson:"name" json:"name" validate:"required,max=200"`
	Description        string   `bson:"description,omitempty" json:"description,omitempty" validate:"max=2000"`
	Price              float64  `bson:"price" json:"price" validate:"gte=0"`
	OriginalPrice      *float64 `bson:"original_price,omitempty" json:"original_price,omitempty" validate:"omitempty,gte=0"`
	Image              string   `bson:"image,omitempty" json:"image,omitempty"`
	CategoryID         string   `bson:"-" json:"category_id" validate:"required"`
	Label              string   `bson:"label,omitempty" json:"label,omitempty" validate:"omitempty,oneof=Sale Hot New"`
	DiscountPercentage *int     `bson:"discount_percentage,omitempty" json:"discount_percentage,omitempty"`
	StockQuantity      int      `bson:"stock_quantity" json:"stock_quantity" validate:"gte=0"`
	IsActive           int      `bson:"is_active" json:"is_active"`
	CreatedAt          int64    `bson:"created_at" json:"created_at"`
	UpdatedAt          int64    `bson:"updated_at" json:"updated_at"`
}

// Created returns the creation time in UTC.
func (p Product) Created() time.Time {
	return time.Unix(p.CreatedAt, 0).UTC()
}

// DiscountPercentage returns the rounded percentage saved against original,
// or nil when there is no discount.
func DiscountPercentage(price float64, original *float64) *int {
	if original == nil || *original <= 0 || price >= *original {
		return nil
	}
	pct := int(math.Round((*original - price) / *original * 100))
	return &pct
}
