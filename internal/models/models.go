package models

import "time"

// Supported wallet currencies. The converter handles the wider ISO set
// returned by the rate provider; these four get first-class wallet buckets.
const (
	CurrencyUSD = "USD"
	CurrencyGBP = "GBP"
	CurrencyEUR = "EUR"
	CurrencyNGN = "NGN"
)

// User represents a buyer account
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Seller represents a seller account
type Seller struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Product represents a seller's catalog entry
type Product struct {
	ID            int64     `db:"id" json:"id"`
	SellerID      int64     `db:"seller_id" json:"seller_id"`
	SKU           string    `db:"sku" json:"sku"`
	Name          string    `db:"name" json:"name"`
	PriceAmount   float64   `db:"price_amount" json:"price_amount"`
	PriceCurrency string    `db:"price_currency" json:"price_currency"`
	Stock         int       `db:"stock" json:"stock"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a buyer purchase with escrowed payment. Buyer identity is
// snapshotted at order time so later profile edits never alter history.
type Order struct {
	ID     int64  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`

	BuyerID    int64  `db:"buyer_id" json:"buyer_id"`
	BuyerName  string `db:"buyer_name" json:"buyer_name"`
	BuyerEmail string `db:"buyer_email" json:"buyer_email"`
	BuyerPhone string `db:"buyer_phone" json:"buyer_phone"`

	PaymentMethod   string  `db:"payment_method" json:"payment_method"`
	PaymentCurrency string  `db:"payment_currency" json:"payment_currency"`
	PaymentAmount   float64 `db:"payment_amount" json:"payment_amount"`
	PaymentStatus   string  `db:"payment_status" json:"payment_status"`

	EscrowStatus        string     `db:"escrow_status" json:"escrow_status"`
	EscrowHeldAt        *time.Time `db:"escrow_held_at" json:"escrow_held_at,omitempty"`
	EscrowReleasedAt    *time.Time `db:"escrow_released_at" json:"escrow_released_at,omitempty"`
	ReleaseScheduledFor *time.Time `db:"release_scheduled_for" json:"release_scheduled_for,omitempty"`

	ShippingAddress string `db:"shipping_address" json:"shipping_address"`
	Status          string `db:"status" json:"status"`

	DeliveryConfirmed   bool       `db:"delivery_confirmed" json:"delivery_confirmed"`
	DeliveryConfirmedBy *string    `db:"delivery_confirmed_by" json:"delivery_confirmed_by,omitempty"`
	DeliveryConfirmedAt *time.Time `db:"delivery_confirmed_at" json:"delivery_confirmed_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one line of an order, priced in the order's payment
// currency at order time
type OrderItem struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	SellerID    int64   `db:"seller_id" json:"seller_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	Currency    string  `db:"currency" json:"currency"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Subtotal    float64 `db:"subtotal" json:"subtotal"`
}

// Wallet is a seller's per-currency balance bucket
type Wallet struct {
	SellerID       int64     `db:"seller_id" json:"seller_id"`
	Currency       string    `db:"currency" json:"currency"`
	Balance        float64   `db:"balance" json:"balance"`
	PendingBalance float64   `db:"pending_balance" json:"pending_balance"`
	TotalEarnings  float64   `db:"total_earnings" json:"total_earnings"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger record of a money movement. Rows are
// never updated or deleted after insertion.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	OrderID     *int64    `db:"order_id" json:"order_id,omitempty"`
	SellerID    int64     `db:"seller_id" json:"seller_id"`
	Type        string    `db:"type" json:"type"`
	Amount      float64   `db:"amount" json:"amount"`
	Currency    string    `db:"currency" json:"currency"`
	Status      string    `db:"status" json:"status"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Payout represents a seller withdrawal request
type Payout struct {
	ID          int64     `db:"id" json:"id"`
	Reference   string    `db:"reference" json:"reference"`
	SellerID    int64     `db:"seller_id" json:"seller_id"`
	Amount      float64   `db:"amount" json:"amount"`
	Currency    string    `db:"currency" json:"currency"`
	Status      string    `db:"status" json:"status"`
	ProviderRef string    `db:"provider_ref" json:"provider_ref,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// Payment statuses
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Escrow statuses. Once released the escrow never reverts.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Transaction types
const (
	TxTypeSale          = "sale"
	TxTypeRefund        = "refund"
	TxTypeWithdrawal    = "withdrawal"
	TxTypeEscrowHold    = "escrow_hold"
	TxTypeEscrowRelease = "escrow_release"
)

// Transaction statuses
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Payout statuses
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// Delivery confirmation sources
const (
	ConfirmedByBuyer = "buyer"
	ConfirmedByAuto  = "auto"
	ConfirmedByAdmin = "admin"
)
