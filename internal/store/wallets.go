package store

import (
	"context"
	"fmt"

	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
)

func checkAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount %.2f: %w", amount, models.ErrInvalidAmount)
	}
	return nil
}

// creditPending adds an escrow hold to a seller's pending balance, creating
// the currency bucket on first use.
func creditPending(ctx context.Context, ext sqlx.ExtContext, sellerID int64, currency string, amount float64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	_, err := ext.ExecContext(ctx, `
		INSERT INTO seller_wallets (seller_id, currency, balance, pending_balance, total_earnings)
		VALUES ($1, $2, 0, $3, 0)
		ON CONFLICT (seller_id, currency)
		DO UPDATE SET pending_balance = seller_wallets.pending_balance + $3, updated_at = NOW()`,
		sellerID, currency, amount)
	if err != nil {
		return fmt.Errorf("failed to credit pending balance: %w", err)
	}
	return nil
}

// releaseFunds moves an escrowed amount from pending to available and bumps
// lifetime earnings. The predicate rejects a release that would drive the
// pending balance negative; that state means ledger and wallet disagree and
// must surface as an error, never be clamped away.
func releaseFunds(ctx context.Context, ext sqlx.ExtContext, sellerID int64, currency string, amount float64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	res, err := ext.ExecContext(ctx, `
		UPDATE seller_wallets SET
			pending_balance = pending_balance - $1,
			balance = balance + $1,
			total_earnings = total_earnings + $1,
			updated_at = NOW()
		WHERE seller_id = $2 AND currency = $3 AND pending_balance >= $1`,
		amount, sellerID, currency)
	if err != nil {
		return fmt.Errorf("failed to release funds: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("pending balance underflow for seller %d %s releasing %.2f", sellerID, currency, amount)
	}
	return nil
}

// debitBalance withdraws from a seller's available balance
func debitBalance(ctx context.Context, ext sqlx.ExtContext, sellerID int64, currency string, amount float64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	res, err := ext.ExecContext(ctx, `
		UPDATE seller_wallets SET balance = balance - $1, updated_at = NOW()
		WHERE seller_id = $2 AND currency = $3 AND balance >= $1`,
		amount, sellerID, currency)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("seller %d %s withdrawing %.2f: %w", sellerID, currency, amount, models.ErrInsufficientBalance)
	}
	return nil
}

// creditBalance returns funds to a seller's available balance (payout
// compensation)
func creditBalance(ctx context.Context, ext sqlx.ExtContext, sellerID int64, currency string, amount float64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	res, err := ext.ExecContext(ctx, `
		UPDATE seller_wallets SET balance = balance + $1, updated_at = NOW()
		WHERE seller_id = $2 AND currency = $3`,
		amount, sellerID, currency)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("wallet for seller %d %s: %w", sellerID, currency, models.ErrNotFound)
	}
	return nil
}

// GetWallets retrieves all currency buckets for a seller
func (s *Store) GetWallets(ctx context.Context, sellerID int64) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := s.db.SelectContext(ctx, &wallets,
		"SELECT * FROM seller_wallets WHERE seller_id = $1 ORDER BY currency", sellerID)
	return wallets, err
}

// GetWallet retrieves a single currency bucket for a seller
func (s *Store) GetWallet(ctx context.Context, sellerID int64, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.GetContext(ctx, &wallet,
		"SELECT * FROM seller_wallets WHERE seller_id = $1 AND currency = $2", sellerID, currency)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
