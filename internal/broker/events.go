package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", event.OrderID), event)
}

// PublishEscrowReleased publishes EscrowReleased event
func (ep *EventPublisher) PublishEscrowReleased(ctx context.Context, event *models.EscrowReleasedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", event.OrderID), event)
}

// PublishPayoutRequested publishes PayoutRequested event
func (ep *EventPublisher) PublishPayoutRequested(ctx context.Context, event *models.PayoutRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("payout-%d", event.PayoutID), event)
}

// PublishPayoutCompleted publishes PayoutCompleted event
func (ep *EventPublisher) PublishPayoutCompleted(ctx context.Context, event *models.PayoutCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("payout-%d", event.PayoutID), event)
}

// PublishPayoutFailed publishes PayoutFailed event
func (ep *EventPublisher) PublishPayoutFailed(ctx context.Context, event *models.PayoutFailedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("payout-%d", event.PayoutID), event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	logger            *zap.Logger
	onPayoutRequested func(context.Context, *models.PayoutRequestedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnPayoutRequested registers a handler for PayoutRequested events
func (eh *EventHandler) OnPayoutRequested(handler func(context.Context, *models.PayoutRequestedEvent) error) {
	eh.onPayoutRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypePayoutRequested:
		if eh.onPayoutRequested != nil {
			var event models.PayoutRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PayoutRequested event: %w", err)
			}
			return eh.onPayoutRequested(ctx, &event)
		}

	default:
		// OrderCreated / EscrowReleased / payout terminal events are for
		// downstream consumers (notifications, analytics), not this service.
	}

	return nil
}
