package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-service/internal/currency"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const confirmLockTTL = 30 * time.Second

// Converter prices amounts in the order's payment currency
type Converter interface {
	Convert(amount float64, from, to string) float64
}

// Inventory reserves and restores product stock
type Inventory interface {
	Reserve(ctx context.Context, productID int64, quantity int) (*models.Product, error)
	Release(ctx context.Context, productID int64, quantity int) error
}

// SettlementStore is the persistence surface for the settlement workflow
type SettlementStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ApplyOrderSettlement(ctx context.Context, st *store.OrderSettlement) error
	ReleaseOrderEscrow(ctx context.Context, rel *store.EscrowRelease) (bool, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error)
	ListDueEscrowOrders(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}

// Locker serializes concurrent confirmations of the same order
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// SettlementPublisher publishes settlement domain events
type SettlementPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishEscrowReleased(ctx context.Context, event *models.EscrowReleasedEvent) error
}

// SettlementService orchestrates the order settlement workflow: order
// creation with escrow hold, and delivery confirmation with fund release.
type SettlementService struct {
	store      SettlementStore
	inventory  Inventory
	converter  Converter
	ledger     *LedgerRecorder
	locker     Locker
	publisher  SettlementPublisher
	holdPeriod time.Duration
	logger     *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	store SettlementStore,
	inventory Inventory,
	converter Converter,
	ledger *LedgerRecorder,
	locker Locker,
	publisher SettlementPublisher,
	holdPeriod time.Duration,
) *SettlementService {
	return &SettlementService{
		store:      store,
		inventory:  inventory,
		converter:  converter,
		ledger:     ledger,
		locker:     locker,
		publisher:  publisher,
		holdPeriod: holdPeriod,
		logger:     util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID          int64              `json:"-"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method" binding:"required"`
	PaymentCurrency string             `json:"payment_currency" binding:"required"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

type reservation struct {
	productID int64
	quantity  int
}

// CreateOrder validates and reserves stock, prices each line item in the
// payment currency, and persists the order with its escrow_hold ledger
// entries and seller pending-balance credits atomically. Reserved stock is
// restored if persistence fails.
func (s *SettlementService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SettlementLatency.WithLabelValues("create_order").Observe(time.Since(start).Seconds())
	}()

	buyer, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("buyer_not_found").Inc()
		return nil, nil, err
	}

	var (
		reserved []reservation
		items    []models.OrderItem
		total    float64
	)

	for _, ir := range req.Items {
		product, err := s.inventory.Reserve(ctx, ir.ProductID, ir.Quantity)
		if err != nil {
			s.restock(ctx, reserved)
			util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
			return nil, nil, err
		}
		reserved = append(reserved, reservation{productID: ir.ProductID, quantity: ir.Quantity})

		unitPrice := s.converter.Convert(product.PriceAmount, product.PriceCurrency, req.PaymentCurrency)
		subtotal := currency.Round2(unitPrice * float64(ir.Quantity))
		total += subtotal

		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			SellerID:    product.SellerID,
			ProductName: product.Name,
			UnitPrice:   unitPrice,
			Currency:    req.PaymentCurrency,
			Quantity:    ir.Quantity,
			Subtotal:    subtotal,
		})
	}

	now := time.Now().UTC()
	releaseAt := now.Add(s.holdPeriod)

	order := &models.Order{
		Number:              newOrderNumber(),
		BuyerID:             buyer.ID,
		BuyerName:           buyer.Name,
		BuyerEmail:          buyer.Email,
		BuyerPhone:          buyer.Phone,
		PaymentMethod:       req.PaymentMethod,
		PaymentCurrency:     req.PaymentCurrency,
		PaymentAmount:       currency.Round2(total),
		PaymentStatus:       models.PaymentStatusProcessing,
		EscrowStatus:        models.EscrowStatusHeld,
		EscrowHeldAt:        &now,
		ReleaseScheduledFor: &releaseAt,
		ShippingAddress:     req.ShippingAddress,
		Status:              models.OrderStatusPending,
	}

	settlement := &store.OrderSettlement{
		Order:  order,
		Items:  items,
		Ledger: s.ledger.HoldEntries(order.Number, req.PaymentCurrency, items),
		Holds:  holdMoves(items),
	}

	if err := s.store.ApplyOrderSettlement(ctx, settlement); err != nil {
		s.restock(ctx, reserved)
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, nil, fmt.Errorf("failed to persist order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created with escrow held",
		zap.String("order_number", order.Number),
		zap.Int64("buyer_id", buyer.ID),
		zap.Float64("total", order.PaymentAmount),
		zap.String("currency", order.PaymentCurrency))

	event := &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID,
		OrderNumber: order.Number,
		BuyerID:     buyer.ID,
		Currency:    order.PaymentCurrency,
		TotalAmount: order.PaymentAmount,
		Items:       eventItems(settlement.Items),
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, settlement.Items, nil
}

// ConfirmDelivery releases the escrow for an order: the order transitions to
// completed exactly once, each item's funds move from the seller's pending
// balance to its available balance, and escrow_release ledger entries are
// appended. A second confirmation is rejected with ErrEscrowReleased.
func (s *SettlementService) ConfirmDelivery(ctx context.Context, orderNumber string, userID int64, confirmedBy string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.ConfirmDelivery")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SettlementLatency.WithLabelValues("confirm_delivery").Observe(time.Since(start).Seconds())
	}()

	// The lock keeps concurrent confirmations from racing past the status
	// read; the conditional escrow transition below is the real guarantee.
	lockKey := fmt.Sprintf("confirm:%s", orderNumber)
	acquired, err := s.locker.AcquireLock(ctx, lockKey, confirmLockTTL)
	if err != nil {
		s.logger.Warn("Confirm lock unavailable, relying on DB guard", zap.Error(err))
	} else if !acquired {
		return nil, fmt.Errorf("order %s confirmation in progress: %w", orderNumber, models.ErrEscrowReleased)
	} else {
		defer func() {
			if err := s.locker.ReleaseLock(context.Background(), lockKey); err != nil {
				s.logger.Warn("Failed to release confirm lock", zap.Error(err))
			}
		}()
	}

	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if confirmedBy == models.ConfirmedByBuyer && order.BuyerID != userID {
		return nil, fmt.Errorf("user %d is not the buyer of order %s: %w", userID, orderNumber, models.ErrForbidden)
	}

	if order.EscrowStatus != models.EscrowStatusHeld {
		util.EscrowReleaseRejectedTotal.Inc()
		return nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrEscrowReleased)
	}

	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	releasedAt := time.Now().UTC()
	release := &store.EscrowRelease{
		OrderID:     order.ID,
		ConfirmedBy: confirmedBy,
		ReleasedAt:  releasedAt,
		Ledger:      s.ledger.ReleaseEntries(order.Number, order.PaymentCurrency, items),
		Moves:       holdMoves(items),
	}

	released, err := s.store.ReleaseOrderEscrow(ctx, release)
	if err != nil {
		return nil, fmt.Errorf("failed to release escrow for order %s: %w", orderNumber, err)
	}
	if !released {
		util.EscrowReleaseRejectedTotal.Inc()
		return nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrEscrowReleased)
	}

	order.Status = models.OrderStatusCompleted
	order.PaymentStatus = models.PaymentStatusCompleted
	order.EscrowStatus = models.EscrowStatusReleased
	order.EscrowReleasedAt = &releasedAt
	order.DeliveryConfirmed = true
	order.DeliveryConfirmedBy = &confirmedBy
	order.DeliveryConfirmedAt = &releasedAt

	util.EscrowReleasedTotal.WithLabelValues(confirmedBy).Inc()
	s.logger.Info("Escrow released",
		zap.String("order_number", order.Number),
		zap.String("confirmed_by", confirmedBy))

	event := &models.EscrowReleasedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeEscrowReleased),
		OrderID:     order.ID,
		OrderNumber: order.Number,
		ReleasedBy:  confirmedBy,
		Currency:    order.PaymentCurrency,
		Items:       eventItems(items),
	}
	if err := s.publisher.PublishEscrowReleased(ctx, event); err != nil {
		s.logger.Error("Failed to publish EscrowReleased event", zap.Error(err))
	}

	return order, nil
}

// AutoReleaseDue releases escrow for orders whose scheduled release date has
// passed without a buyer confirmation. Invoked by the background poller.
func (s *SettlementService) AutoReleaseDue(ctx context.Context) error {
	orders, err := s.store.ListDueEscrowOrders(ctx, time.Now().UTC(), 100)
	if err != nil {
		return fmt.Errorf("failed to list due escrows: %w", err)
	}

	for _, order := range orders {
		if _, err := s.ConfirmDelivery(ctx, order.Number, order.BuyerID, models.ConfirmedByAuto); err != nil {
			if errors.Is(err, models.ErrEscrowReleased) {
				continue
			}
			s.logger.Error("Auto release failed",
				zap.String("order_number", order.Number),
				zap.Error(err))
		}
	}
	return nil
}

// GetOrder retrieves an order with its items by order number
func (s *SettlementService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// ListOrders retrieves a buyer's orders, newest first
func (s *SettlementService) ListOrders(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return s.store.ListOrdersByBuyer(ctx, buyerID)
}

func (s *SettlementService) restock(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if err := s.inventory.Release(ctx, r.productID, r.quantity); err != nil {
			s.logger.Error("Failed to restock after settlement failure",
				zap.Int64("product_id", r.productID),
				zap.Int("quantity", r.quantity),
				zap.Error(err))
		}
	}
}

func holdMoves(items []models.OrderItem) []store.WalletMove {
	moves := make([]store.WalletMove, 0, len(items))
	for _, item := range items {
		moves = append(moves, store.WalletMove{
			SellerID: item.SellerID,
			Currency: item.Currency,
			Amount:   item.Subtotal,
		})
	}
	return moves
}

func eventItems(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		data = append(data, models.OrderItemData{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return data
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "product_not_found"
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

func newOrderNumber() string {
	return fmt.Sprintf("MKT-%s", strings.ToUpper(uuid.New().String()[:8]))
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
