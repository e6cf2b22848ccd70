package service

import (
	"context"
)

// OrderPlacedEvent is emitted after an order transaction commits.
type OrderPlacedEvent struct {
	RequestID   string            `json:"request_id,omitempty"`
	Tenant      string            `json:"tenant"`
	OrderID     int64             `json:"order_id"`
	UserID      int64             `json:"user_id"`
	TotalAmount string            `json:"total_amount"`
	Items       []OrderPlacedItem `json:"items"`
	PlacedAt    string            `json:"placed_at"`
}

// OrderPlacedItem is one line of an OrderPlacedEvent.
type OrderPlacedItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// EventPublisher defines the interface for publishing domain events to a message queue
type EventPublisher interface {
	// PublishOrderPlaced publishes an order.placed event.
	PublishOrderPlaced(ctx context.Context, event *OrderPlacedEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
