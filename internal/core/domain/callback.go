package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallbackPayload holds the URL-form-decoded key/value pairs sent by the
// gateway. It is untrusted until the signature has been verified; before that
// only merchant_reference and signature may be read, and only for routing and
// error reporting.
type CallbackPayload map[string]string

// Clone returns an independent copy so signature verification can pop fields
// without mutating the caller's payload.
func (p CallbackPayload) Clone() CallbackPayload {
	out := make(CallbackPayload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ProcessorResponse is an append-only audit record of a raw gateway callback.
// Records are never mutated or deleted; duplicates for the same basket are
// expected and tolerated.
type ProcessorResponse struct {
	ID            uuid.UUID
	Endpoint      string
	TransactionID string
	BasketID      *int64
	Payload       CallbackPayload
	CreatedAt     time.Time
}

// PaymentEventType distinguishes messages on the payment events topic.
type PaymentEventType string

const (
	EventCallbackRecorded PaymentEventType = "callback.recorded"
	EventOrderPlaced      PaymentEventType = "order.placed"
)

// PaymentEvent is the message published to Kafka after a callback has been
// recorded or an order has been placed.
type PaymentEvent struct {
	ID                uuid.UUID        `json:"id"`
	Type              PaymentEventType `json:"type"`
	Endpoint          string           `json:"endpoint"`
	TransactionID     string           `json:"transaction_id"`
	MerchantReference string           `json:"merchant_reference"`
	BasketID          int64            `json:"basket_id,omitempty"`
	Status            string           `json:"status"`
	Amount            string           `json:"amount"`
	Currency          string           `json:"currency"`
	OrderNumber       string           `json:"order_number,omitempty"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

// AuditResult is the outcome of running audit rules over a payment event.
type AuditResult struct {
	Flagged bool
	Reason  string
}
