package ports

import (
	"context"
	"time"

	"payfort-gateway/internal/core/domain"
)

// BasketRepository is an "outgoing port". It defines WHAT we want from basket
// storage, but not HOW; the implementation may be PostgreSQL, in-memory etc.
type BasketRepository interface {
	BasketByID(ctx context.Context, id int64) (*domain.Basket, error)
}

// ResponseRecorder appends raw processor responses to the audit log.
type ResponseRecorder interface {
	Record(ctx context.Context, rec domain.ProcessorResponse) error
	ResponsesByBasket(ctx context.Context, basketID int64) ([]domain.ProcessorResponse, error)
}

// OrderPlacer finalizes a paid basket. PlaceOrder must run the payment
// handling and order creation in a single atomic unit, guarded against
// concurrent callers for the same basket; it returns
// domain.ErrAlreadySubmitted when the basket was finalized earlier.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, basketID int64, transactionID string, recordID string, payload domain.CallbackPayload) (*domain.Order, error)
	OrderByBasket(ctx context.Context, basketID int64) (*domain.Order, error)
}

// MessageBroker is the outgoing port for the payment events stream.
type MessageBroker interface {
	PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error
}

// RateLimiterRepository answers whether a request under the given key is
// still within its window budget.
type RateLimiterRepository interface {
	IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
