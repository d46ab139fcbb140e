package notification

// BroadcastTrigger is the payload of a recurring fan-out job.
type BroadcastTrigger struct{}

// RecipientJob addresses one recipient of a scheduled notification.
type RecipientJob struct {
	UserID string `json:"user_id" validate:"required"`
}

// OrderUpdateJob tells one recipient about a newly created product.
type OrderUpdateJob struct {
	UserID    string `json:"user_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
}

// ProductTrigger asks the order-updates worker to notify recipients about a
// new product.
type ProductTrigger struct {
	ProductID string `json:"product_id" validate:"required"`
}
