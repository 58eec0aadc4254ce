package service

import (
	"context"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/mock"
)

type mockSettlementStore struct {
	mock.Mock
}

func (m *mockSettlementStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockSettlementStore) ApplyOrderSettlement(ctx context.Context, st *store.OrderSettlement) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *mockSettlementStore) ReleaseOrderEscrow(ctx context.Context, rel *store.EscrowRelease) (bool, error) {
	args := m.Called(ctx, rel)
	return args.Bool(0), args.Error(1)
}

func (m *mockSettlementStore) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockSettlementStore) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderItem), args.Error(1)
}

func (m *mockSettlementStore) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockSettlementStore) ListDueEscrowOrders(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) Reserve(ctx context.Context, productID int64, quantity int) (*models.Product, error) {
	args := m.Called(ctx, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *mockInventory) Release(ctx context.Context, productID int64, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) ReleaseLock(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishEscrowReleased(ctx context.Context, event *models.EscrowReleasedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishPayoutRequested(ctx context.Context, event *models.PayoutRequestedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishPayoutCompleted(ctx context.Context, event *models.PayoutCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishPayoutFailed(ctx context.Context, event *models.PayoutFailedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockInventoryStore struct {
	mock.Mock
}

func (m *mockInventoryStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *mockInventoryStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

func (m *mockInventoryStore) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

type mockProductCache struct {
	mock.Mock
}

func (m *mockProductCache) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *mockProductCache) SetProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductCache) InvalidateProduct(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type mockPayoutStore struct {
	mock.Mock
}

func (m *mockPayoutStore) GetSellerByID(ctx context.Context, id int64) (*models.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seller), args.Error(1)
}

func (m *mockPayoutStore) GetWallets(ctx context.Context, sellerID int64) ([]models.Wallet, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Wallet), args.Error(1)
}

func (m *mockPayoutStore) WithdrawForPayout(ctx context.Context, payout *models.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *mockPayoutStore) GetPayoutByReference(ctx context.Context, reference string) (*models.Payout, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payout), args.Error(1)
}

func (m *mockPayoutStore) CompletePayout(ctx context.Context, payoutID int64, providerRef string) error {
	args := m.Called(ctx, payoutID, providerRef)
	return args.Error(0)
}

func (m *mockPayoutStore) FailPayout(ctx context.Context, payout *models.Payout, reason string) error {
	args := m.Called(ctx, payout, reason)
	return args.Error(0)
}

type mockIdempotency struct {
	mock.Mock
}

func (m *mockIdempotency) SetIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}
