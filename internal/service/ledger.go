package service

import (
	"context"
	"fmt"

	"marketplace-service/internal/models"
)

// LedgerStore is the persistence surface the recorder reads from. Writes go
// through the settlement and payout transactions so ledger entries and wallet
// mutations commit or roll back together.
type LedgerStore interface {
	ListTransactionsBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Transaction, error)
}

// LedgerRecorder composes the append-only audit entries written during
// settlement and serves ledger reads. Entries are never updated: a release
// appends a new escrow_release row rather than touching the hold.
type LedgerRecorder struct {
	store LedgerStore
}

// NewLedgerRecorder creates a new ledger recorder
func NewLedgerRecorder(store LedgerStore) *LedgerRecorder {
	return &LedgerRecorder{store: store}
}

// HoldEntries builds the escrow_hold entries for a new order, one per item
func (l *LedgerRecorder) HoldEntries(orderNumber, currency string, items []models.OrderItem) []models.Transaction {
	entries := make([]models.Transaction, 0, len(items))
	for _, item := range items {
		entries = append(entries, models.Transaction{
			SellerID:    item.SellerID,
			Type:        models.TxTypeEscrowHold,
			Amount:      item.Subtotal,
			Currency:    currency,
			Status:      models.TxStatusPending,
			Description: fmt.Sprintf("Escrow hold for order %s", orderNumber),
		})
	}
	return entries
}

// ReleaseEntries builds the escrow_release entries for a delivery
// confirmation, one per item
func (l *LedgerRecorder) ReleaseEntries(orderNumber, currency string, items []models.OrderItem) []models.Transaction {
	entries := make([]models.Transaction, 0, len(items))
	for _, item := range items {
		entries = append(entries, models.Transaction{
			SellerID:    item.SellerID,
			Type:        models.TxTypeEscrowRelease,
			Amount:      item.Subtotal,
			Currency:    currency,
			Status:      models.TxStatusCompleted,
			Description: fmt.Sprintf("Escrow release for order %s", orderNumber),
		})
	}
	return entries
}

// ListBySeller retrieves a seller's ledger entries, newest first
func (l *LedgerRecorder) ListBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Transaction, error) {
	return l.store.ListTransactionsBySeller(ctx, sellerID, limit)
}
