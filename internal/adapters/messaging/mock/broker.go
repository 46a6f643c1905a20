package mock

import (
	"context"
	"log/slog"

	"payfort-gateway/internal/core/domain"
)

// Broker is a stand-in MessageBroker for local runs without Kafka.
type Broker struct {
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{logger: logger}
}

func (b *Broker) Close() {}

func (b *Broker) PublishPaymentEvent(_ context.Context, event domain.PaymentEvent) error {
	b.logger.Info("[mock broker] payment event",
		"type", string(event.Type),
		"transaction_id", event.TransactionID,
		"merchant_reference", event.MerchantReference,
		"status", event.Status,
	)
	return nil
}
