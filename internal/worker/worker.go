package worker

import (
	"context"
	"time"

	"marketplace-service/internal/broker"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// PayoutWorker consumes PayoutRequested events and runs the provider transfer
type PayoutWorker struct {
	consumer      *broker.Consumer
	eventHandler  *broker.EventHandler
	payoutService *service.PayoutService
	logger        *zap.Logger
}

// NewPayoutWorker creates a new payout worker
func NewPayoutWorker(consumer *broker.Consumer, payoutService *service.PayoutService) *PayoutWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPayoutRequested(payoutService.ProcessPayout)

	return &PayoutWorker{
		consumer:      consumer,
		eventHandler:  eventHandler,
		payoutService: payoutService,
		logger:        util.GetLogger(),
	}
}

// Start starts the worker
func (w *PayoutWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting payout worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PayoutWorker) Stop() error {
	w.logger.Info("Stopping payout worker")
	return w.consumer.Close()
}

// EscrowWorker releases escrow for orders whose scheduled release date passed
// without a buyer confirmation
type EscrowWorker struct {
	settlement *service.SettlementService
	interval   time.Duration
	logger     *zap.Logger
}

// NewEscrowWorker creates a new escrow auto-release worker
func NewEscrowWorker(settlement *service.SettlementService, interval time.Duration) *EscrowWorker {
	return &EscrowWorker{
		settlement: settlement,
		interval:   interval,
		logger:     util.GetLogger(),
	}
}

// Start polls for due escrows until the context is cancelled
func (w *EscrowWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting escrow auto-release worker",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Escrow worker context cancelled, stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.settlement.AutoReleaseDue(ctx); err != nil {
				w.logger.Error("Escrow auto-release sweep failed", zap.Error(err))
			}
		}
	}
}
