package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"payfort-gateway/internal/core/domain"
	"payfort-gateway/internal/core/ports"
	"payfort-gateway/internal/observability"
	"payfort-gateway/internal/payfort"
)

// Endpoint names used for audit records and metrics.
const (
	EndpointRedirect     = "response"
	EndpointFeedback     = "feedback"
	EndpointNotification = "notification"
)

// RedirectAction tells the HTTP layer what to do after the browser returns
// from the gateway.
type RedirectAction int

const (
	// ActionReject answers 404; the callback failed authentication and was
	// not recorded.
	ActionReject RedirectAction = iota
	// ActionErrorPage redirects to the internal error page keyed by the
	// transaction id.
	ActionErrorPage
	// ActionGenericError redirects to the generic payment-error page.
	ActionGenericError
	// ActionWaitPage renders the wait/poll page for a successful payment.
	ActionWaitPage
)

// RedirectResult is the outcome of processing the browser-redirect callback.
type RedirectResult struct {
	Action        RedirectAction
	TransactionID string
}

// StatusResult is the storefront-facing answer of the status endpoint.
type StatusResult struct {
	Status     domain.BasketStatus
	ReceiptURL string
}

// Service is the callback orchestrator. Each entry point follows the same
// validate -> record -> act template; the storage layer provides the atomic
// check-and-create fence for concurrent notifications on the same basket.
type Service struct {
	processor      *payfort.Processor
	baskets        ports.BasketRepository
	recorder       ports.ResponseRecorder
	orders         ports.OrderPlacer
	broker         ports.MessageBroker
	receiptPageURL string
	logger         *slog.Logger
}

// NewService wires the orchestrator. All dependencies come in through
// interfaces.
func NewService(
	processor *payfort.Processor,
	baskets ports.BasketRepository,
	recorder ports.ResponseRecorder,
	orders ports.OrderPlacer,
	broker ports.MessageBroker,
	receiptPageURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		processor:      processor,
		baskets:        baskets,
		recorder:       recorder,
		orders:         orders,
		broker:         broker,
		receiptPageURL: receiptPageURL,
		logger:         logger,
	}
}

// validateCallback establishes trust in strict order: signature first (the
// trust boundary), then format, then basket resolution. On a format failure
// the basket is still resolved so a "successful but malformed" callback can
// be logged as its own incident; the returned basket may therefore be
// non-nil even when err is not.
func (s *Service) validateCallback(ctx context.Context, payload domain.CallbackPayload) (*domain.Basket, error) {
	if err := s.processor.VerifyResponse(payload); err != nil {
		s.logger.Warn("callback signature rejected", "error", err.Error())
		return nil, err
	}

	if err := s.processor.ValidateResponseFormat(payload); err != nil {
		basket := s.resolveBasket(ctx, payload)
		if basket != nil && payload["status"] == payfort.SuccessStatus {
			s.logger.Error(
				"successful payment with malformed payload",
				"merchant_reference", payload["merchant_reference"],
				"basket_id", basket.ID,
				"error", err.Error(),
			)
		}
		return basket, err
	}

	basket := s.resolveBasket(ctx, payload)
	if basket == nil {
		return nil, fmt.Errorf("%w: merchant_reference %s", domain.ErrNotFound, payload["merchant_reference"])
	}
	return basket, nil
}

func (s *Service) resolveBasket(ctx context.Context, payload domain.CallbackPayload) *domain.Basket {
	basketID, ok := payfort.DecodeBasketID(payload["merchant_reference"])
	if !ok {
		return nil
	}
	basket, err := s.baskets.BasketByID(ctx, basketID)
	if err != nil {
		return nil
	}
	return basket
}

// record appends the raw payload to the audit log and emits a payment event.
// Persistence failures are logged with the merchant reference and surfaced
// as a not-found class error, deliberately opaque to the gateway.
func (s *Service) record(ctx context.Context, endpoint string, payload domain.CallbackPayload, basket *domain.Basket) (*domain.ProcessorResponse, error) {
	rec := domain.ProcessorResponse{
		ID:            uuid.New(),
		Endpoint:      endpoint,
		TransactionID: payfort.TransactionID(payload),
		Payload:       payload.Clone(),
		CreatedAt:     time.Now().UTC(),
	}
	if basket != nil {
		basketID := basket.ID
		rec.BasketID = &basketID
	}

	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Error(
			"failed to record processor response",
			"merchant_reference", payload["merchant_reference"],
			"error", err,
		)
		return nil, fmt.Errorf("%w: could not record processor response", domain.ErrNotFound)
	}

	s.publishEvent(ctx, domain.EventCallbackRecorded, endpoint, payload, basket, "")
	return &rec, nil
}

// ProcessRedirect handles the browser returning from the gateway (entry
// point A). It never creates the order itself; that is the notification
// path's job. The browser only gets told what to watch.
func (s *Service) ProcessRedirect(ctx context.Context, payload domain.CallbackPayload) RedirectResult {
	transactionID := payfort.TransactionID(payload)

	basket, err := s.validateCallback(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrBadSignature) {
			observability.ObserveCallback(EndpointRedirect, "bad_signature")
			return RedirectResult{Action: ActionReject}
		}
		// Format and not-found failures are still recorded for audit.
		if _, recErr := s.record(ctx, EndpointRedirect, payload, basket); recErr != nil {
			s.logger.Error("audit record lost for rejected redirect", "transaction_id", transactionID)
		}
		observability.ObserveCallback(EndpointRedirect, outcomeLabel(err))
		return RedirectResult{Action: ActionErrorPage, TransactionID: transactionID}
	}

	if _, err := s.record(ctx, EndpointRedirect, payload, basket); err != nil {
		observability.ObserveCallback(EndpointRedirect, "record_failed")
		return RedirectResult{Action: ActionErrorPage, TransactionID: transactionID}
	}

	if payload["status"] != payfort.SuccessStatus {
		s.logger.Info(
			"payment failed on redirect",
			"merchant_reference", payload["merchant_reference"],
			"response_code", payload["response_code"],
		)
		observability.ObserveCallback(EndpointRedirect, "payment_failed")
		return RedirectResult{Action: ActionGenericError}
	}

	observability.ObserveCallback(EndpointRedirect, "ok")
	return RedirectResult{Action: ActionWaitPage, TransactionID: transactionID}
}

// ProcessFeedback handles the server-to-server notification (entry point B
// and its notification alias). A nil return means "acknowledged": either the
// order is placed now, was already placed, or the gateway reported a failure
// there is nothing to do about.
func (s *Service) ProcessFeedback(ctx context.Context, endpoint string, payload domain.CallbackPayload) error {
	basket, err := s.validateCallback(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrBadSignature) {
			observability.ObserveCallback(endpoint, "bad_signature")
			return err
		}
		if _, recErr := s.record(ctx, endpoint, payload, basket); recErr != nil {
			s.logger.Error("audit record lost for rejected notification", "transaction_id", payfort.TransactionID(payload))
		}
		observability.ObserveCallback(endpoint, outcomeLabel(err))
		return err
	}

	rec, err := s.record(ctx, endpoint, payload, basket)
	if err != nil {
		observability.ObserveCallback(endpoint, "record_failed")
		return err
	}

	if payload["status"] != payfort.SuccessStatus {
		s.logger.Info(
			"gateway reported failed payment",
			"merchant_reference", payload["merchant_reference"],
			"response_code", payload["response_code"],
		)
		observability.ObserveCallback(endpoint, "payment_failed")
		return nil
	}

	// Idempotency fence, fast path. The storage layer re-checks under a row
	// lock, so a concurrent duplicate loses there instead.
	if basket.Status == domain.BasketSubmitted {
		observability.ObserveCallback(endpoint, "duplicate")
		return nil
	}

	order, err := s.orders.PlaceOrder(ctx, basket.ID, rec.TransactionID, rec.ID.String(), payload)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			observability.ObserveCallback(endpoint, "duplicate")
			return nil
		}
		s.logger.Error(
			"order placement failed",
			"basket_id", basket.ID,
			"record_id", rec.ID.String(),
			"transaction_id", rec.TransactionID,
			"error", err,
		)
		observability.ObserveCallback(endpoint, "processing_failed")
		return fmt.Errorf("%w: basket %d: %v", domain.ErrProcessing, basket.ID, err)
	}

	s.logger.Info(
		"order placed",
		"basket_id", basket.ID,
		"order_number", order.Number,
		"transaction_id", rec.TransactionID,
	)
	observability.ObserveCallback(endpoint, "ok")
	observability.ObserveOrderPlaced()
	s.publishEvent(ctx, domain.EventOrderPlaced, endpoint, payload, basket, order.Number)
	return nil
}

// PaymentStatus answers the storefront poll (entry point C).
func (s *Service) PaymentStatus(ctx context.Context, merchantReference string) (*StatusResult, error) {
	basketID, ok := payfort.DecodeBasketID(merchantReference)
	if !ok {
		return nil, fmt.Errorf("%w: merchant_reference %s", domain.ErrNotFound, merchantReference)
	}
	basket, err := s.baskets.BasketByID(ctx, basketID)
	if err != nil {
		return nil, fmt.Errorf("%w: basket %d", domain.ErrNotFound, basketID)
	}

	switch basket.Status {
	case domain.BasketFrozen:
		return &StatusResult{Status: domain.BasketFrozen}, nil
	case domain.BasketSubmitted:
		order, err := s.orders.OrderByBasket(ctx, basket.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: order for basket %d", domain.ErrNotFound, basket.ID)
		}
		return &StatusResult{
			Status:     domain.BasketSubmitted,
			ReceiptURL: s.receiptURL(order.Number),
		}, nil
	default:
		return nil, fmt.Errorf("%w: basket %d is %s", domain.ErrNotFound, basket.ID, basket.Status)
	}
}

// BuildTransaction assembles the signed payment-initiation parameters for a
// basket about to be sent to the gateway.
func (s *Service) BuildTransaction(ctx context.Context, basketID int64, reqCtx payfort.RequestContext) (map[string]string, error) {
	basket, err := s.baskets.BasketByID(ctx, basketID)
	if err != nil {
		return nil, fmt.Errorf("%w: basket %d", domain.ErrNotFound, basketID)
	}
	return s.processor.TransactionParams(basket, reqCtx)
}

// GatewayPageURL is the hosted checkout page the customer is posted to.
func (s *Service) GatewayPageURL() string {
	return s.processor.PaymentPageURL()
}

// ResponsesByBasket exposes the audit trail to the ops API.
func (s *Service) ResponsesByBasket(ctx context.Context, basketID int64) ([]domain.ProcessorResponse, error) {
	return s.recorder.ResponsesByBasket(ctx, basketID)
}

func (s *Service) receiptURL(orderNumber string) string {
	return strings.TrimRight(s.receiptPageURL, "/") + "/" + orderNumber
}

func (s *Service) publishEvent(ctx context.Context, eventType domain.PaymentEventType, endpoint string, payload domain.CallbackPayload, basket *domain.Basket, orderNumber string) {
	event := domain.PaymentEvent{
		ID:                uuid.New(),
		Type:              eventType,
		Endpoint:          endpoint,
		TransactionID:     payfort.TransactionID(payload),
		MerchantReference: payload["merchant_reference"],
		Status:            payload["status"],
		Amount:            payload["amount"],
		Currency:          payload["currency"],
		OrderNumber:       orderNumber,
		OccurredAt:        time.Now().UTC(),
	}
	if basket != nil {
		event.BasketID = basket.ID
	}
	// The event stream is an observability aid, never part of the callback
	// contract: failures are logged and the request proceeds.
	if err := s.broker.PublishPaymentEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish payment event", "type", string(eventType), "error", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrFormat):
		return "bad_format"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
