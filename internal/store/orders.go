package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace-service/internal/models"
)

// WalletMove describes a wallet mutation applied inside a settlement
// transaction: an escrow hold credit or a pending-to-available release.
type WalletMove struct {
	SellerID int64
	Currency string
	Amount   float64
}

// OrderSettlement bundles everything CreateOrder persists atomically: the
// order, its items, the escrow_hold ledger rows, and the pending credits.
type OrderSettlement struct {
	Order  *models.Order
	Items  []models.OrderItem
	Ledger []models.Transaction
	Holds  []WalletMove
}

// EscrowRelease bundles everything ConfirmDelivery persists atomically.
type EscrowRelease struct {
	OrderID     int64
	ConfirmedBy string
	ReleasedAt  time.Time
	Ledger      []models.Transaction
	Moves       []WalletMove
}

// ApplyOrderSettlement persists a new order with its items, escrow_hold
// ledger entries and seller pending-balance credits in one transaction.
// Stock is reserved beforehand by the inventory guard; the caller restocks
// if this fails.
func (s *Store) ApplyOrderSettlement(ctx context.Context, st *OrderSettlement) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			number, buyer_id, buyer_name, buyer_email, buyer_phone,
			payment_method, payment_currency, payment_amount, payment_status,
			escrow_status, escrow_held_at, release_scheduled_for,
			shipping_address, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	o := st.Order
	err = tx.QueryRowxContext(ctx, query,
		o.Number, o.BuyerID, o.BuyerName, o.BuyerEmail, o.BuyerPhone,
		o.PaymentMethod, o.PaymentCurrency, o.PaymentAmount, o.PaymentStatus,
		o.EscrowStatus, o.EscrowHeldAt, o.ReleaseScheduledFor,
		o.ShippingAddress, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range st.Items {
		item := &st.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, seller_id, product_name, unit_price, currency, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			item.OrderID, item.ProductID, item.SellerID, item.ProductName,
			item.UnitPrice, item.Currency, item.Quantity, item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	for i := range st.Ledger {
		st.Ledger[i].OrderID = &o.ID
		if err := insertTransaction(ctx, tx, &st.Ledger[i]); err != nil {
			return err
		}
	}

	for _, h := range st.Holds {
		if err := creditPending(ctx, tx, h.SellerID, h.Currency, h.Amount); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReleaseOrderEscrow transitions an order's escrow from held to released and
// applies the per-item ledger entries and wallet releases in one transaction.
// Returns false when the escrow was not in the held state, in which case
// nothing is written; the conditional transition is what makes a second
// confirmation a rejected no-op instead of a double credit.
func (s *Store) ReleaseOrderEscrow(ctx context.Context, rel *EscrowRelease) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			escrow_status = $1, escrow_released_at = $2,
			status = $3, payment_status = $4,
			delivery_confirmed = TRUE, delivery_confirmed_by = $5, delivery_confirmed_at = $2,
			updated_at = NOW()
		WHERE id = $6 AND escrow_status = $7`,
		models.EscrowStatusReleased, rel.ReleasedAt,
		models.OrderStatusCompleted, models.PaymentStatusCompleted,
		rel.ConfirmedBy, rel.OrderID, models.EscrowStatusHeld)
	if err != nil {
		return false, fmt.Errorf("failed to release escrow: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	for i := range rel.Ledger {
		rel.Ledger[i].OrderID = &rel.OrderID
		if err := insertTransaction(ctx, tx, &rel.Ledger[i]); err != nil {
			return false, err
		}
	}

	for _, m := range rel.Moves {
		if err := releaseFunds(ctx, tx, m.SellerID, m.Currency, m.Amount); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE number = $1", number)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", number, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// ListOrdersByBuyer retrieves orders for a buyer, newest first
func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	return orders, err
}

// ListDueEscrowOrders retrieves held-escrow orders whose scheduled release
// date has passed and the buyer never confirmed
func (s *Store) ListDueEscrowOrders(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE escrow_status = $1 AND delivery_confirmed = FALSE AND release_scheduled_for <= $2
		ORDER BY release_scheduled_for
		LIMIT $3`,
		models.EscrowStatusHeld, now, limit)
	return orders, err
}
