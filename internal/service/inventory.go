package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the persistence surface the guard needs
type InventoryStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	RestoreStock(ctx context.Context, productID int64, quantity int) error
}

// ProductCache is an optional read cache in front of the product table
type ProductCache interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	InvalidateProduct(ctx context.Context, productID int64) error
}

// InventoryGuard checks and decrements product stock at order time. The
// authoritative check-and-decrement is a single conditional update in the
// store, so two concurrent orders for the last units can never both succeed.
type InventoryGuard struct {
	store  InventoryStore
	cache  ProductCache
	logger *zap.Logger
}

// NewInventoryGuard creates a new inventory guard. cache may be nil.
func NewInventoryGuard(store InventoryStore, cache ProductCache) *InventoryGuard {
	return &InventoryGuard{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Reserve loads the product and deducts quantity from its stock. Returns the
// product with the deducted stock count.
func (g *InventoryGuard) Reserve(ctx context.Context, productID int64, quantity int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryGuard.Reserve")
	defer span.End()

	if quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", quantity, models.ErrInvalidAmount)
	}

	product, err := g.getProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			util.StockReservationsFailed.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	// Cheap pre-check against the (possibly cached) snapshot; the
	// conditional update below is the authority.
	if product.Stock < quantity {
		util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
		return nil, fmt.Errorf("product %d, requested %d: %w", productID, quantity, models.ErrInsufficientStock)
	}

	if err := g.store.DecrementStock(ctx, productID, quantity); err != nil {
		if errors.Is(err, models.ErrInsufficientStock) {
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
		}
		return nil, err
	}

	g.invalidate(ctx, productID)
	product.Stock -= quantity
	return product, nil
}

// Release restocks a previously reserved quantity (compensation)
func (g *InventoryGuard) Release(ctx context.Context, productID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryGuard.Release")
	defer span.End()

	if err := g.store.RestoreStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("failed to restore stock for product %d: %w", productID, err)
	}
	g.invalidate(ctx, productID)
	return nil
}

func (g *InventoryGuard) getProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if g.cache != nil {
		product, err := g.cache.GetProduct(ctx, productID)
		if err != nil {
			g.logger.Warn("Product cache read failed, falling back to DB",
				zap.Int64("product_id", productID),
				zap.Error(err))
		} else if product != nil {
			return product, nil
		}
	}

	product, err := g.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.SetProduct(ctx, product); err != nil {
			g.logger.Warn("Failed to cache product",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
	}
	return product, nil
}

func (g *InventoryGuard) invalidate(ctx context.Context, productID int64) {
	if g.cache == nil {
		return
	}
	if err := g.cache.InvalidateProduct(ctx, productID); err != nil {
		g.logger.Warn("Failed to invalidate product cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}
