package catalog

import "time"

// ProductCreated is published after a product has been stored.
type ProductCreated struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
