package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
)

// Processor handles order lifecycle events from SQS.
type Processor struct {
	idempStore *idempotency.Store
	orderStore *orders.Store
	metrics    *aws.Metrics
	log        *zap.Logger
}

// NewProcessor creates a worker processor over the given stores.
func NewProcessor(orderStore *orders.Store, idempStore *idempotency.Store, metrics *aws.Metrics, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		idempStore: idempStore,
		orderStore: orderStore,
		metrics:    metrics,
		log:        log,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			p.log.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev orders.Event
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	log := p.log.With(
		zap.String("event_type", ev.Type),
		zap.String("order_id", ev.OrderID),
		zap.String("correlation_id", ev.CorrelationID),
	)
	log.Info("received event")

	switch ev.Type {
	case orders.EventOrderPlaced:
		return p.placed(ctx, log, ev)
	case orders.EventOrderPaid:
		return p.paid(ctx, ev)
	case orders.EventOrderDelivered:
		return p.delivered(ctx, log, ev)
	default:
		// nothing to retry; let the message go
		log.Warn("unknown event type")
		return nil
	}
}

// placed moves PENDING -> PROCESSING and settles the idempotency record
// if the API could not.
func (p *Processor) placed(ctx context.Context, log *zap.Logger, ev orders.Event) error {
	order, err := p.orderStore.Get(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", ev.OrderID)
	}
	if err := p.orderStore.IncrementAttempts(ctx, ev.OrderID); err != nil {
		return err
	}

	err = p.orderStore.UpdateStatus(ctx, ev.OrderID, orders.StatusPending, orders.StatusProcessing)
	if errors.Is(err, orders.ErrStatusMismatch) {
		current, gerr := p.orderStore.Get(ctx, ev.OrderID)
		if gerr != nil {
			return fmt.Errorf("failed to fetch order: %w", gerr)
		}
		if current == nil {
			return fmt.Errorf("order not found: %s", ev.OrderID)
		}
		switch current.Status {
		case orders.StatusProcessing, orders.StatusCompleted:
			log.Info("duplicate placed event", zap.String("status", current.Status))
		case orders.StatusFailed:
			// later placements on this cart version must not replay a dead order
			if current.IdempotencyKey != "" {
				if merr := p.idempStore.MarkFailed(ctx, current.IdempotencyKey, "order failed"); merr != nil {
					return fmt.Errorf("failed to update idempotency: %w", merr)
				}
			}
			return fmt.Errorf("order=%s is already FAILED", ev.OrderID)
		default:
			return fmt.Errorf("unexpected status for order=%s: %s", ev.OrderID, current.Status)
		}
	} else if err != nil {
		return fmt.Errorf("failed to update status to PROCESSING: %w", err)
	}

	key := ev.IdempotencyKey
	if key == "" {
		key = order.IdempotencyKey
	}
	if key == "" {
		return nil
	}
	idem, err := p.idempStore.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to fetch idempotency record: %w", err)
	}
	if idem != nil && idem.Status == idempotency.StatusInProgress {
		body, _ := json.Marshal(orders.Result{Success: true, Message: "Order placed successfully", OrderID: ev.OrderID})
		if err := p.idempStore.MarkDone(ctx, key, string(body), http.StatusCreated); err != nil {
			return fmt.Errorf("failed to update idempotency: %w", err)
		}
		log.Info("settled idempotency record", zap.String("idempotency_key", key))
	}
	log.Info("order processing")
	return nil
}

func (p *Processor) paid(ctx context.Context, ev orders.Event) error {
	dims := map[string]string{"PaymentMethod": ev.PaymentMethod}
	return p.metrics.Put(ctx,
		aws.CountMetric(orders.MetricOrdersPaid, dims),
		aws.Metric{Name: orders.MetricRevenue, Value: ev.TotalPrice.Float64(), Unit: cwtypes.StandardUnitNone, Dimensions: dims},
	)
}

// delivered completes the order: PROCESSING -> COMPLETED.
func (p *Processor) delivered(ctx context.Context, log *zap.Logger, ev orders.Event) error {
	err := p.orderStore.UpdateStatus(ctx, ev.OrderID, orders.StatusProcessing, orders.StatusCompleted)
	if errors.Is(err, orders.ErrStatusMismatch) {
		current, gerr := p.orderStore.Get(ctx, ev.OrderID)
		if gerr != nil {
			return fmt.Errorf("failed to fetch order: %w", gerr)
		}
		if current == nil {
			return fmt.Errorf("order not found: %s", ev.OrderID)
		}
		switch current.Status {
		case orders.StatusCompleted:
			log.Info("already completed")
			return nil
		case orders.StatusPending:
			// placed event not processed yet; retry later
			return fmt.Errorf("order=%s still PENDING", ev.OrderID)
		default:
			return fmt.Errorf("unexpected status for order=%s: %s", ev.OrderID, current.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to update status to COMPLETED: %w", err)
	}
	log.Info("completed order")
	return nil
}
