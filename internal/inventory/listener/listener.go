package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

const (
	EventOrderSold = "OrderSold"
	ReasonSold     = "SOLD"
)

// MessageReader is the part of broker.KafkaConsumer the listener needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type SalesListener struct {
	consumer  MessageReader
	uc        inventory.UseCase
	logger    logger.ZapLogger
	retryWait time.Duration
}

func NewSalesListener(consumer MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *SalesListener {
	return &SalesListener{
		consumer:  consumer,
		uc:        uc,
		logger:    logger,
		retryWait: time.Second,
	}
}

func (l *SalesListener) Start(ctx context.Context) {
	l.logger.Info("Starting sales Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping sales Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.retryWait):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderSoldEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	OrderID string             `json:"order_id"`
	Channel string             `json:"channel"` // sales location, e.g. TOKOPEDIA
	Items   []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

func (l *SalesListener) processMessage(ctx context.Context, value []byte) {
	var event OrderSoldEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventOrderSold {
		return
	}

	l.logger.Info("Processing OrderSold event", zap.String("order_id", event.Payload.OrderID))

	for _, item := range event.Payload.Items {
		_, err := l.uc.ApplyOut(ctx, &dto.MovementInput{
			SKU:      item.SKU,
			Location: event.Payload.Channel,
			Qty:      item.Quantity,
			Reason:   ReasonSold,
			Notes:    "order " + event.Payload.OrderID,
		})
		if err != nil {
			l.logger.Error("Failed to deduct stock for order item",
				zap.String("order_id", event.Payload.OrderID),
				zap.String("sku", item.SKU),
				zap.Error(err),
			)
		}
	}
}
