package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"marketplace-service/internal/currency"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type settlementFixture struct {
	svc       *SettlementService
	store     *mockSettlementStore
	inventory *mockInventory
	locker    *mockLocker
	publisher *mockPublisher
}

func newSettlementFixture() *settlementFixture {
	conv := currency.NewConverter("http://localhost:0", "USD", time.Hour)
	conv.SetRates(map[string]float64{
		"USD": 1,
		"NGN": 1500,
		"EUR": 0.92,
	})

	st := new(mockSettlementStore)
	inv := new(mockInventory)
	locker := new(mockLocker)
	pub := new(mockPublisher)

	svc := NewSettlementService(
		st, inv, conv, NewLedgerRecorder(st), locker, pub, 14*24*time.Hour)

	return &settlementFixture{
		svc:       svc,
		store:     st,
		inventory: inv,
		locker:    locker,
		publisher: pub,
	}
}

func (m *mockSettlementStore) ListTransactionsBySeller(ctx context.Context, sellerID int64, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, sellerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func testBuyer() *models.User {
	return &models.User{ID: 7, Name: "Ada Obi", Email: "ada@example.com", Phone: "+2348000000000"}
}

func TestCreateOrderHoldsEscrowAndCreditsPending(t *testing.T) {
	f := newSettlementFixture()

	f.store.On("GetUserByID", mock.Anything, int64(7)).Return(testBuyer(), nil)
	f.inventory.On("Reserve", mock.Anything, int64(101), 3).Return(&models.Product{
		ID: 101, SellerID: 9, Name: "Leather bag",
		PriceAmount: 100, PriceCurrency: "USD", Stock: 2,
	}, nil)

	var captured *store.OrderSettlement
	f.store.On("ApplyOrderSettlement", mock.Anything, mock.AnythingOfType("*store.OrderSettlement")).
		Return(nil).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*store.OrderSettlement)
		})
	f.publisher.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil)

	order, items, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          7,
		Items:           []OrderItemRequest{{ProductID: 101, Quantity: 3}},
		ShippingAddress: "12 Allen Avenue, Lagos",
		PaymentMethod:   "card",
		PaymentCurrency: "NGN",
	})

	require.NoError(t, err)
	require.NotNil(t, captured)

	// USD 100 at NGN 1500 = NGN 150,000 per unit
	assert.InDelta(t, 450000, order.PaymentAmount, 0.01)
	assert.Equal(t, models.PaymentStatusProcessing, order.PaymentStatus)
	assert.Equal(t, models.EscrowStatusHeld, order.EscrowStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Contains(t, order.Number, "MKT-")
	assert.Equal(t, "Ada Obi", order.BuyerName)

	require.NotNil(t, order.EscrowHeldAt)
	require.NotNil(t, order.ReleaseScheduledFor)
	assert.WithinDuration(t, order.EscrowHeldAt.Add(14*24*time.Hour), *order.ReleaseScheduledFor, time.Second)

	require.Len(t, items, 1)
	assert.InDelta(t, 150000, items[0].UnitPrice, 0.01)
	assert.InDelta(t, 450000, items[0].Subtotal, 0.01)
	assert.Equal(t, "NGN", items[0].Currency)

	require.Len(t, captured.Ledger, 1)
	assert.Equal(t, models.TxTypeEscrowHold, captured.Ledger[0].Type)
	assert.Equal(t, models.TxStatusPending, captured.Ledger[0].Status)
	assert.InDelta(t, 450000, captured.Ledger[0].Amount, 0.01)

	require.Len(t, captured.Holds, 1)
	assert.Equal(t, int64(9), captured.Holds[0].SellerID)
	assert.Equal(t, "NGN", captured.Holds[0].Currency)
	assert.InDelta(t, 450000, captured.Holds[0].Amount, 0.01)
}

func TestCreateOrderTotalMatchesItemSubtotals(t *testing.T) {
	f := newSettlementFixture()

	f.store.On("GetUserByID", mock.Anything, int64(7)).Return(testBuyer(), nil)
	f.inventory.On("Reserve", mock.Anything, int64(101), 2).Return(&models.Product{
		ID: 101, SellerID: 9, PriceAmount: 19.99, PriceCurrency: "USD", Stock: 8,
	}, nil)
	f.inventory.On("Reserve", mock.Anything, int64(102), 5).Return(&models.Product{
		ID: 102, SellerID: 4, PriceAmount: 7.5, PriceCurrency: "EUR", Stock: 0,
	}, nil)
	f.store.On("ApplyOrderSettlement", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil)

	order, items, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID: 7,
		Items: []OrderItemRequest{
			{ProductID: 101, Quantity: 2},
			{ProductID: 102, Quantity: 5},
		},
		ShippingAddress: "1 High Street",
		PaymentMethod:   "card",
		PaymentCurrency: "NGN",
	})

	require.NoError(t, err)
	require.Len(t, items, 2)

	var sum float64
	for _, item := range items {
		sum += item.Subtotal
	}
	assert.InDelta(t, sum, order.PaymentAmount, 0.01)
}

func TestCreateOrderInsufficientStockRestocksEarlierItems(t *testing.T) {
	f := newSettlementFixture()

	f.store.On("GetUserByID", mock.Anything, int64(7)).Return(testBuyer(), nil)
	f.inventory.On("Reserve", mock.Anything, int64(101), 1).Return(&models.Product{
		ID: 101, SellerID: 9, PriceAmount: 10, PriceCurrency: "USD", Stock: 4,
	}, nil)
	f.inventory.On("Reserve", mock.Anything, int64(102), 5).
		Return(nil, fmt.Errorf("product 102, requested 5: %w", models.ErrInsufficientStock))
	f.inventory.On("Release", mock.Anything, int64(101), 1).Return(nil)

	_, _, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID: 7,
		Items: []OrderItemRequest{
			{ProductID: 101, Quantity: 1},
			{ProductID: 102, Quantity: 5},
		},
		ShippingAddress: "1 High Street",
		PaymentMethod:   "card",
		PaymentCurrency: "USD",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	f.inventory.AssertCalled(t, "Release", mock.Anything, int64(101), 1)
	f.store.AssertNotCalled(t, "ApplyOrderSettlement", mock.Anything, mock.Anything)
}

func TestCreateOrderBuyerNotFound(t *testing.T) {
	f := newSettlementFixture()

	f.store.On("GetUserByID", mock.Anything, int64(99)).
		Return(nil, fmt.Errorf("user 99: %w", models.ErrNotFound))

	_, _, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          99,
		Items:           []OrderItemRequest{{ProductID: 101, Quantity: 1}},
		ShippingAddress: "1 High Street",
		PaymentMethod:   "card",
		PaymentCurrency: "USD",
	})

	assert.ErrorIs(t, err, models.ErrNotFound)
	f.inventory.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderPersistFailureRestocks(t *testing.T) {
	f := newSettlementFixture()

	f.store.On("GetUserByID", mock.Anything, int64(7)).Return(testBuyer(), nil)
	f.inventory.On("Reserve", mock.Anything, int64(101), 2).Return(&models.Product{
		ID: 101, SellerID: 9, PriceAmount: 10, PriceCurrency: "USD", Stock: 3,
	}, nil)
	f.store.On("ApplyOrderSettlement", mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))
	f.inventory.On("Release", mock.Anything, int64(101), 2).Return(nil)

	_, _, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          7,
		Items:           []OrderItemRequest{{ProductID: 101, Quantity: 2}},
		ShippingAddress: "1 High Street",
		PaymentMethod:   "card",
		PaymentCurrency: "USD",
	})

	require.Error(t, err)
	f.inventory.AssertCalled(t, "Release", mock.Anything, int64(101), 2)
}

func heldOrder() *models.Order {
	heldAt := time.Now().UTC().Add(-48 * time.Hour)
	return &models.Order{
		ID:              55,
		Number:          "MKT-AB12CD34",
		BuyerID:         7,
		PaymentCurrency: "NGN",
		PaymentAmount:   450000,
		PaymentStatus:   models.PaymentStatusProcessing,
		EscrowStatus:    models.EscrowStatusHeld,
		EscrowHeldAt:    &heldAt,
		Status:          models.OrderStatusPending,
	}
}

func TestConfirmDeliveryReleasesFunds(t *testing.T) {
	f := newSettlementFixture()

	f.locker.On("AcquireLock", mock.Anything, "confirm:MKT-AB12CD34", mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, "confirm:MKT-AB12CD34").Return(nil)
	f.store.On("GetOrderByNumber", mock.Anything, "MKT-AB12CD34").Return(heldOrder(), nil)
	f.store.On("GetOrderItems", mock.Anything, int64(55)).Return([]models.OrderItem{
		{OrderID: 55, ProductID: 101, SellerID: 9, Currency: "NGN", Quantity: 3, Subtotal: 450000},
	}, nil)

	var captured *store.EscrowRelease
	f.store.On("ReleaseOrderEscrow", mock.Anything, mock.AnythingOfType("*store.EscrowRelease")).
		Return(true, nil).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*store.EscrowRelease)
		})
	f.publisher.On("PublishEscrowReleased", mock.Anything, mock.Anything).Return(nil)

	order, err := f.svc.ConfirmDelivery(context.Background(), "MKT-AB12CD34", 7, models.ConfirmedByBuyer)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, models.EscrowStatusReleased, order.EscrowStatus)
	assert.True(t, order.DeliveryConfirmed)
	require.NotNil(t, order.DeliveryConfirmedBy)
	assert.Equal(t, models.ConfirmedByBuyer, *order.DeliveryConfirmedBy)

	require.NotNil(t, captured)
	assert.Equal(t, models.ConfirmedByBuyer, captured.ConfirmedBy)
	require.Len(t, captured.Ledger, 1)
	assert.Equal(t, models.TxTypeEscrowRelease, captured.Ledger[0].Type)
	assert.Equal(t, models.TxStatusCompleted, captured.Ledger[0].Status)
	require.Len(t, captured.Moves, 1)
	assert.Equal(t, int64(9), captured.Moves[0].SellerID)
	assert.InDelta(t, 450000, captured.Moves[0].Amount, 0.01)
}

func TestConfirmDeliveryForbiddenForNonBuyer(t *testing.T) {
	f := newSettlementFixture()

	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("GetOrderByNumber", mock.Anything, "MKT-AB12CD34").Return(heldOrder(), nil)

	_, err := f.svc.ConfirmDelivery(context.Background(), "MKT-AB12CD34", 8, models.ConfirmedByBuyer)

	assert.ErrorIs(t, err, models.ErrForbidden)
	f.store.AssertNotCalled(t, "ReleaseOrderEscrow", mock.Anything, mock.Anything)
}

func TestConfirmDeliveryTwiceIsRejected(t *testing.T) {
	f := newSettlementFixture()

	released := heldOrder()
	released.EscrowStatus = models.EscrowStatusReleased
	released.Status = models.OrderStatusCompleted

	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("GetOrderByNumber", mock.Anything, "MKT-AB12CD34").Return(released, nil)

	_, err := f.svc.ConfirmDelivery(context.Background(), "MKT-AB12CD34", 7, models.ConfirmedByBuyer)

	assert.ErrorIs(t, err, models.ErrEscrowReleased)
	f.store.AssertNotCalled(t, "GetOrderItems", mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "ReleaseOrderEscrow", mock.Anything, mock.Anything)
}

func TestConfirmDeliveryLostRaceAtStoreIsRejected(t *testing.T) {
	f := newSettlementFixture()

	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("GetOrderByNumber", mock.Anything, "MKT-AB12CD34").Return(heldOrder(), nil)
	f.store.On("GetOrderItems", mock.Anything, int64(55)).Return([]models.OrderItem{
		{OrderID: 55, SellerID: 9, Currency: "NGN", Quantity: 3, Subtotal: 450000},
	}, nil)
	f.store.On("ReleaseOrderEscrow", mock.Anything, mock.Anything).Return(false, nil)

	_, err := f.svc.ConfirmDelivery(context.Background(), "MKT-AB12CD34", 7, models.ConfirmedByBuyer)

	assert.ErrorIs(t, err, models.ErrEscrowReleased)
	f.publisher.AssertNotCalled(t, "PublishEscrowReleased", mock.Anything, mock.Anything)
}

func TestConfirmDeliveryNotFound(t *testing.T) {
	f := newSettlementFixture()

	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("GetOrderByNumber", mock.Anything, "MKT-MISSING1").
		Return(nil, fmt.Errorf("order MKT-MISSING1: %w", models.ErrNotFound))

	_, err := f.svc.ConfirmDelivery(context.Background(), "MKT-MISSING1", 7, models.ConfirmedByBuyer)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAutoReleaseDueConfirmsAsAuto(t *testing.T) {
	f := newSettlementFixture()

	due := heldOrder()
	f.store.On("ListDueEscrowOrders", mock.Anything, mock.Anything, 100).
		Return([]models.Order{*due}, nil)
	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("GetOrderByNumber", mock.Anything, due.Number).Return(due, nil)
	f.store.On("GetOrderItems", mock.Anything, due.ID).Return([]models.OrderItem{
		{OrderID: 55, SellerID: 9, Currency: "NGN", Quantity: 3, Subtotal: 450000},
	}, nil)

	var captured *store.EscrowRelease
	f.store.On("ReleaseOrderEscrow", mock.Anything, mock.Anything).
		Return(true, nil).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*store.EscrowRelease)
		})
	f.publisher.On("PublishEscrowReleased", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.svc.AutoReleaseDue(context.Background()))
	require.NotNil(t, captured)
	assert.Equal(t, models.ConfirmedByAuto, captured.ConfirmedBy)
}
