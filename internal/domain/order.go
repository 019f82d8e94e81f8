package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusModified  OrderStatus = "modified"
	OrderStatusProcessed OrderStatus = "processed"
)

// OrderItem stores no price: prices and totals are resolved from the
// catalog's current price whenever the order is rendered, so a displayed
// total can drift if the catalog price changes after creation.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// Mutable reports whether the order can still be edited or cancelled.
// Processed orders are terminal.
func (o *Order) Mutable() bool {
	return o.Status != OrderStatusProcessed
}

type OrderView struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Items     []LineView  `json:"items"`
	Total     int64       `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}
