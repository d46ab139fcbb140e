package notification

import "time"

// Recipient is a user who opted into a notification subtype.
type Recipient struct {
	UserID string
	Name   string
	Email  string
}

// User is the part of a user account needed to address an email.
type User struct {
	ID    string
	Name  string
	Email string
}

// Product is a catalog item as shown in notification emails.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         float64
	OriginalPrice *float64
	CreatedAt     time.Time
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string
	Name      string
	Price     float64
	Quantity  int
}

// Order is a paid order used for the account summary.
type Order struct {
	ID        string
	UserID    string
	Items     []OrderItem
	Total     float64
	CreatedAt time.Time
}

// Summary aggregates a user's orders over the reporting window.
type Summary struct {
	TotalOrders   int
	TotalProducts int
	TotalAmount   float64
}

// Summarize totals orders. Quantities are summed across all items.
func Summarize(orders []Order) Summary {
	var s Summary
	s.TotalOrders = len(orders)
	for _, o := range orders {
		s.TotalAmount += o.Total
		for _, item := range o.Items {
			s.TotalProducts += item.Quantity
		}
	}
	return s
}
