package domain

import "time"

// Events are emitted after the enclosing transaction commits; they are
// best-effort notifications, never part of the atomic unit.

type OrderCreatedEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
	Timestamp time.Time   `json:"timestamp"`
}

type OrderProcessedEvent struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
