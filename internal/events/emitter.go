package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Cart activity event types.
const (
	TypeItemAdded       = "cart.item_added"
	TypeItemUpdated     = "cart.item_updated"
	TypeItemRemoved     = "cart.item_removed"
	TypeCleared         = "cart.cleared"
	TypeDiscountApplied = "cart.discount_applied"
	TypeDiscountRemoved = "cart.discount_removed"
)

type CartEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	CartID     int64     `json:"cart_id,omitempty"`
	ProductID  int64     `json:"product_id,omitempty"`
	VariantID  *int64    `json:"variant_id,omitempty"`
	LineID     int64     `json:"line_id,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Code       string    `json:"code,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCartEvent stamps identity and time on an event.
func NewCartEvent(eventType, userID string) CartEvent {
	return CartEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// Emitter publishes cart activity. Emit never blocks the request path.
type Emitter interface {
	Emit(ev CartEvent)
}

// NopEmitter drops everything; used in tests and when Kafka is disabled.
type NopEmitter struct{}

func (NopEmitter) Emit(CartEvent) {}

// KafkaEmitter buffers events and drains them to a Kafka topic from a
// single background goroutine. The buffer is lossy under pressure: cart
// activity is telemetry, not a ledger.
type KafkaEmitter struct {
	writer *kafka.Writer
	ch     chan CartEvent
	logger *zap.Logger
}

func NewKafkaEmitter(writer *kafka.Writer, logger *zap.Logger) *KafkaEmitter {
	if logger == nil {
		logger = zap.L()
	}
	return &KafkaEmitter{
		writer: writer,
		ch:     make(chan CartEvent, 256),
		logger: logger.Named("events.emitter"),
	}
}

func (e *KafkaEmitter) Emit(ev CartEvent) {
	select {
	case e.ch <- ev:
	default:
		e.logger.Warn("event buffer full, dropping", zap.String("type", ev.Type), zap.String("user_id", ev.UserID))
	}
}

// Run drains the buffer until ctx is done.
func (e *KafkaEmitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.ch:
			if err := e.publish(ctx, ev); err != nil {
				e.logger.Warn("event publish failed", zap.String("type", ev.Type), zap.Error(err))
			}
		}
	}
}

func (e *KafkaEmitter) publish(ctx context.Context, ev CartEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Type),
		Value: payload,
	})
}
