// Package event publishes checkout domain events to Kafka.
package event

import (
	"context"
	"log/slog"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	pkgkafka "github.com/m-a-mahammad/shop-checkout/pkg/kafka"
)

// Kafka topic constants for checkout domain events.
const (
	TopicCartUpdated            = "shop.cart.updated"
	TopicPaymentSessionCreated  = "shop.payment.session_created"
	TopicPaymentSessionRejected = "shop.payment.session_rejected"
)

const (
	aggregateTypeCart    = "cart"
	aggregateTypePayment = "payment"
	sourceService        = "checkout-service"
)

// Publisher is the slice of the Kafka producer the event layer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID    string         `json:"user_id"`
	Revision  int64          `json:"revision"`
	ItemCount int            `json:"item_count"`
	Lines     []CartLineData `json:"lines"`
}

// CartLineData is the line payload within cart events.
type CartLineData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// SessionCreatedData is the payload for a payment.session_created event.
type SessionCreatedData struct {
	UserID           string `json:"user_id"`
	SpecialReference string `json:"special_reference"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	SessionKind      string `json:"session_kind"`
}

// SessionRejectedData is the payload for a payment.session_rejected event.
type SessionRejectedData struct {
	UserID           string `json:"user_id"`
	SpecialReference string `json:"special_reference"`
	Reason           string `json:"reason"`
}

// Producer publishes checkout domain events. Event publishing is best
// effort: a broker outage must never fail the user-facing operation, so
// failures are logged and swallowed here.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// CartUpdated publishes a cart.updated event for the given snapshot.
func (p *Producer) CartUpdated(ctx context.Context, cart *domain.Cart) {
	lines := make([]CartLineData, len(cart.Lines))
	for i, line := range cart.Lines {
		lines[i] = CartLineData{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
		}
	}

	data := CartUpdatedData{
		UserID:    cart.UserID,
		Revision:  cart.Revision,
		ItemCount: cart.ItemCount(),
		Lines:     lines,
	}

	p.publish(ctx, TopicCartUpdated, cart.UserID, aggregateTypeCart, data)
}

// SessionCreated publishes a payment.session_created event.
func (p *Producer) SessionCreated(ctx context.Context, data SessionCreatedData) {
	p.publish(ctx, TopicPaymentSessionCreated, data.UserID, aggregateTypePayment, data)
}

// SessionRejected publishes a payment.session_rejected event.
func (p *Producer) SessionRejected(ctx context.Context, data SessionRejectedData) {
	p.publish(ctx, TopicPaymentSessionRejected, data.UserID, aggregateTypePayment, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, sourceService, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "create domain event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		p.logger.ErrorContext(ctx, "publish domain event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}
