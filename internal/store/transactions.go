package store

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// insertTransaction appends a ledger row. The ledger is append-only: no
// update or delete exists anywhere in this package.
func insertTransaction(ctx context.Context, ext sqlx.ExtContext, t *models.Transaction) error {
	err := sqlx.GetContext(ctx, ext, t, `
		INSERT INTO transactions (order_id, seller_id, type, amount, currency, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		t.OrderID, t.SellerID, t.Type, t.Amount, t.Currency, t.Status, t.Description)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListTransactionsBySeller retrieves ledger entries for a seller, newest first
func (s *Store) ListTransactionsBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txs []models.Transaction
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM transactions WHERE seller_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		sellerID, limit)
	return txs, err
}

// WithdrawForPayout debits the seller's available balance, records the payout
// and appends the withdrawal ledger entry in one transaction.
func (s *Store) WithdrawForPayout(ctx context.Context, payout *models.Payout) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := debitBalance(ctx, tx, payout.SellerID, payout.Currency, payout.Amount); err != nil {
		return err
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payouts (reference, seller_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		payout.Reference, payout.SellerID, payout.Amount, payout.Currency, payout.Status,
	).Scan(&payout.ID, &payout.CreatedAt, &payout.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}

	ledger := &models.Transaction{
		SellerID:    payout.SellerID,
		Type:        models.TxTypeWithdrawal,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Status:      models.TxStatusPending,
		Description: fmt.Sprintf("Payout %s requested", payout.Reference),
	}
	if err := insertTransaction(ctx, tx, ledger); err != nil {
		return err
	}

	return tx.Commit()
}

// CompletePayout marks a payout as completed with the provider reference
func (s *Store) CompletePayout(ctx context.Context, payoutID int64, providerRef string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payouts SET status = $1, provider_ref = $2, updated_at = NOW() WHERE id = $3",
		models.PayoutStatusCompleted, providerRef, payoutID)
	return err
}

// FailPayout marks a payout as failed and returns the funds to the seller's
// available balance, with a refund ledger entry, in one transaction.
func (s *Store) FailPayout(ctx context.Context, payout *models.Payout, reason string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE payouts SET status = $1, updated_at = NOW() WHERE id = $2",
		models.PayoutStatusFailed, payout.ID)
	if err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}

	if err := creditBalance(ctx, tx, payout.SellerID, payout.Currency, payout.Amount); err != nil {
		return err
	}

	ledger := &models.Transaction{
		SellerID:    payout.SellerID,
		Type:        models.TxTypeRefund,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Status:      models.TxStatusCompleted,
		Description: fmt.Sprintf("Payout %s failed: %s", payout.Reference, reason),
	}
	if err := insertTransaction(ctx, tx, ledger); err != nil {
		return err
	}

	return tx.Commit()
}

// GetPayoutByReference retrieves a payout by its reference
func (s *Store) GetPayoutByReference(ctx context.Context, reference string) (*models.Payout, error) {
	var payout models.Payout
	err := s.db.GetContext(ctx, &payout,
		"SELECT * FROM payouts WHERE reference = $1", reference)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payout %s: %w", reference, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}
