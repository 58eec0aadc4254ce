package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutStore is the persistence surface for payouts
type PayoutStore interface {
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	GetWallets(ctx context.Context, sellerID int64) ([]models.Wallet, error)
	WithdrawForPayout(ctx context.Context, payout *models.Payout) error
	GetPayoutByReference(ctx context.Context, reference string) (*models.Payout, error)
	CompletePayout(ctx context.Context, payoutID int64, providerRef string) error
	FailPayout(ctx context.Context, payout *models.Payout, reason string) error
}

// PayoutPublisher publishes payout domain events
type PayoutPublisher interface {
	PublishPayoutRequested(ctx context.Context, event *models.PayoutRequestedEvent) error
	PublishPayoutCompleted(ctx context.Context, event *models.PayoutCompletedEvent) error
	PublishPayoutFailed(ctx context.Context, event *models.PayoutFailedEvent) error
}

// IdempotencyGuard deduplicates payout processing across redeliveries
type IdempotencyGuard interface {
	SetIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// PayoutService handles seller withdrawal requests. The provider transfer is
// mocked with a configurable success rate; a failed transfer re-credits the
// seller's wallet.
type PayoutService struct {
	store       PayoutStore
	publisher   PayoutPublisher
	idempotency IdempotencyGuard
	successRate float64
	logger      *zap.Logger
}

// NewPayoutService creates a new payout service
func NewPayoutService(store PayoutStore, publisher PayoutPublisher, idempotency IdempotencyGuard, successRate float64) *PayoutService {
	return &PayoutService{
		store:       store,
		publisher:   publisher,
		idempotency: idempotency,
		successRate: successRate,
		logger:      util.GetLogger(),
	}
}

// RequestPayout withdraws from the seller's available balance and records a
// pending payout with its withdrawal ledger entry. Processing happens
// asynchronously via the payout worker.
func (ps *PayoutService) RequestPayout(ctx context.Context, sellerID int64, amount float64, currencyCode string) (*models.Payout, error) {
	ctx, span := util.StartSpan(ctx, "PayoutService.RequestPayout")
	defer span.End()

	if amount <= 0 {
		return nil, fmt.Errorf("payout amount %.2f: %w", amount, models.ErrInvalidAmount)
	}

	seller, err := ps.store.GetSellerByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	payout := &models.Payout{
		Reference: newPayoutReference(),
		SellerID:  seller.ID,
		Amount:    amount,
		Currency:  currencyCode,
		Status:    models.PayoutStatusPending,
	}

	if err := ps.store.WithdrawForPayout(ctx, payout); err != nil {
		return nil, err
	}

	util.PayoutsRequestedTotal.Inc()
	ps.logger.Info("Payout requested",
		zap.String("reference", payout.Reference),
		zap.Int64("seller_id", seller.ID),
		zap.Float64("amount", amount),
		zap.String("currency", currencyCode))

	event := &models.PayoutRequestedEvent{
		BaseEvent: newBaseEvent(models.EventTypePayoutRequested),
		PayoutID:  payout.ID,
		Reference: payout.Reference,
		SellerID:  seller.ID,
		Amount:    amount,
		Currency:  currencyCode,
	}
	if err := ps.publisher.PublishPayoutRequested(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PayoutRequested event", zap.Error(err))
	}

	return payout, nil
}

// ProcessPayout executes the provider transfer for a requested payout.
// Consumed from the event stream; an idempotency key guards redeliveries.
func (ps *PayoutService) ProcessPayout(ctx context.Context, event *models.PayoutRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "PayoutService.ProcessPayout")
	defer span.End()

	if ps.idempotency != nil {
		fresh, err := ps.idempotency.SetIdempotencyKey(ctx, fmt.Sprintf("payout:%s", event.Reference), 24*time.Hour)
		if err != nil {
			ps.logger.Warn("Idempotency check unavailable", zap.Error(err))
		} else if !fresh {
			ps.logger.Info("Payout already processed, skipping", zap.String("reference", event.Reference))
			return nil
		}
	}

	payout, err := ps.store.GetPayoutByReference(ctx, event.Reference)
	if err != nil {
		return err
	}
	if payout.Status != models.PayoutStatusPending {
		return nil
	}

	// Mock provider call
	time.Sleep(time.Duration(100+rand.Intn(400)) * time.Millisecond)
	success := rand.Float64() < ps.successRate

	if !success {
		if err := ps.store.FailPayout(ctx, payout, "provider_declined"); err != nil {
			return fmt.Errorf("failed to compensate payout %s: %w", payout.Reference, err)
		}

		util.PayoutsFailedTotal.Inc()
		ps.logger.Warn("Payout failed, wallet re-credited", zap.String("reference", payout.Reference))

		failedEvent := &models.PayoutFailedEvent{
			BaseEvent: newBaseEvent(models.EventTypePayoutFailed),
			PayoutID:  payout.ID,
			Reference: payout.Reference,
			Reason:    "provider_declined",
		}
		if err := ps.publisher.PublishPayoutFailed(ctx, failedEvent); err != nil {
			ps.logger.Error("Failed to publish PayoutFailed event", zap.Error(err))
		}
		return nil
	}

	providerRef := fmt.Sprintf("PAY-%s", strings.ToUpper(uuid.New().String()[:8]))
	if err := ps.store.CompletePayout(ctx, payout.ID, providerRef); err != nil {
		return fmt.Errorf("failed to complete payout %s: %w", payout.Reference, err)
	}

	util.PayoutsCompletedTotal.Inc()
	ps.logger.Info("Payout completed",
		zap.String("reference", payout.Reference),
		zap.String("provider_ref", providerRef))

	completedEvent := &models.PayoutCompletedEvent{
		BaseEvent:   newBaseEvent(models.EventTypePayoutCompleted),
		PayoutID:    payout.ID,
		Reference:   payout.Reference,
		ProviderRef: providerRef,
	}
	if err := ps.publisher.PublishPayoutCompleted(ctx, completedEvent); err != nil {
		ps.logger.Error("Failed to publish PayoutCompleted event", zap.Error(err))
	}

	return nil
}

// Wallets retrieves a seller's per-currency balances
func (ps *PayoutService) Wallets(ctx context.Context, sellerID int64) ([]models.Wallet, error) {
	if _, err := ps.store.GetSellerByID(ctx, sellerID); err != nil {
		return nil, err
	}
	return ps.store.GetWallets(ctx, sellerID)
}

func newPayoutReference() string {
	return fmt.Sprintf("PO-%s", strings.ToUpper(uuid.New().String()[:8]))
}
