package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeEscrowReleased  = "ESCROW_RELEASED"
	EventTypePayoutRequested = "PAYOUT_REQUESTED"
	EventTypePayoutCompleted = "PAYOUT_COMPLETED"
	EventTypePayoutFailed    = "PAYOUT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data carried in events
type OrderItemData struct {
	ProductID int64   `json:"product_id"`
	SellerID  int64   `json:"seller_id"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// OrderCreatedEvent published when an order is persisted with escrow held
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	BuyerID     int64           `json:"buyer_id"`
	Currency    string          `json:"currency"`
	TotalAmount float64         `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// EscrowReleasedEvent published when escrowed funds move to seller balances
type EscrowReleasedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	ReleasedBy  string          `json:"released_by"`
	Currency    string          `json:"currency"`
	Items       []OrderItemData `json:"items"`
}

// PayoutRequestedEvent published when a seller withdrawal is accepted
type PayoutRequestedEvent struct {
	BaseEvent
	PayoutID  int64   `json:"payout_id"`
	Reference string  `json:"reference"`
	SellerID  int64   `json:"seller_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// PayoutCompletedEvent published when the payout provider accepts a transfer
type PayoutCompletedEvent struct {
	BaseEvent
	PayoutID    int64  `json:"payout_id"`
	Reference   string `json:"reference"`
	ProviderRef string `json:"provider_ref"`
}

// PayoutFailedEvent published when a payout fails and the wallet is re-credited
type PayoutFailedEvent struct {
	BaseEvent
	PayoutID  int64  `json:"payout_id"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}
