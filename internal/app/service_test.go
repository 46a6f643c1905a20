package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/domain"
	"payfort-gateway/internal/payfort"
)

const (
	testResponsePhrase = "resp-phrase"
	testDigest         = "SHA-256"
)

// Mock - implementation of the basket repository
type MockBaskets struct {
	mock.Mock
}

func (m *MockBaskets) BasketByID(ctx context.Context, id int64) (*domain.Basket, error) {
	args := m.Called(ctx, id)
	if basket, ok := args.Get(0).(*domain.Basket); ok {
		return basket, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock - implementation of the response recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, rec domain.ProcessorResponse) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecorder) ResponsesByBasket(ctx context.Context, basketID int64) ([]domain.ProcessorResponse, error) {
	args := m.Called(ctx, basketID)
	if recs, ok := args.Get(0).([]domain.ProcessorResponse); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock - implementation of the order placer
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) PlaceOrder(ctx context.Context, basketID int64, transactionID, recordID string, payload domain.CallbackPayload) (*domain.Order, error) {
	args := m.Called(ctx, basketID, transactionID, recordID, payload)
	if order, ok := args.Get(0).(*domain.Order); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrders) OrderByBasket(ctx context.Context, basketID int64) (*domain.Order, error) {
	args := m.Called(ctx, basketID)
	if order, ok := args.Get(0).(*domain.Order); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock - implementation of the broker
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type serviceFixture struct {
	service  *Service
	baskets  *MockBaskets
	recorder *MockRecorder
	orders   *MockOrders
	broker   *MockBroker
}

func newFixture(t *testing.T) *serviceFixture {
	processor, err := payfort.NewProcessor(config.PayFortConfig{
		MerchantIdentifier: "mid-123",
		AccessCode:         "access-456",
		SHARequestPhrase:   "req-phrase",
		SHAResponsePhrase:  testResponsePhrase,
		SHAType:            testDigest,
		Currency:           "SAR",
		SiteID:             26,
		ReturnURL:          "https://shop.example.com/payment/payfort/response",
		ReceiptPageURL:     "https://shop.example.com/checkout/receipt/",
	})
	require.NoError(t, err)

	f := &serviceFixture{
		baskets:  new(MockBaskets),
		recorder: new(MockRecorder),
		orders:   new(MockOrders),
		broker:   new(MockBroker),
	}
	f.service = NewService(
		processor,
		f.baskets,
		f.recorder,
		f.orders,
		f.broker,
		"https://shop.example.com/checkout/receipt/",
		slog.Default(),
	)
	return f
}

// signedPayload builds a structurally valid callback and signs it with the
// response phrase; mutate tweaks fields before signing.
func signedPayload(t *testing.T, mutate func(map[string]string)) domain.CallbackPayload {
	fields := map[string]string{
		"merchant_reference":  "26-77-1",
		"command":             "PURCHASE",
		"merchant_identifier": "mid-123",
		"amount":              "9876",
		"currency":            "SAR",
		"response_code":       "14000",
		"status":              "14",
		"eci":                 "ECI",
		"fort_id":             "149295435400084008",
	}
	if mutate != nil {
		mutate(fields)
	}

	signature, err := payfort.Sign(testResponsePhrase, testDigest, fields)
	require.NoError(t, err)

	payload := domain.CallbackPayload{"signature": signature}
	for k, v := range fields {
		payload[k] = v
	}
	return payload
}

func frozenBasket() *domain.Basket {
	return &domain.Basket{
		ID:       1,
		OwnerID:  77,
		Status:   domain.BasketFrozen,
		Total:    decimal.RequireFromString("98.76"),
		Currency: "SAR",
	}
}

func TestProcessFeedback_PlacesOrderOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payload := signedPayload(t, nil)

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.AnythingOfType("domain.ProcessorResponse")).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.AnythingOfType("domain.PaymentEvent")).Return(nil)
	f.orders.On("PlaceOrder", mock.Anything, int64(1), "ECI-149295435400084008", mock.AnythingOfType("string"), mock.Anything).
		Return(&domain.Order{Number: "EDX-100001", BasketID: 1}, nil).Once()

	err := f.service.ProcessFeedback(ctx, EndpointFeedback, payload)

	assert.NoError(t, err)
	f.orders.AssertNumberOfCalls(t, "PlaceOrder", 1)
	f.recorder.AssertExpectations(t)
}

func TestProcessFeedback_DuplicateIsInert(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, nil)

	submitted := frozenBasket()
	submitted.Status = domain.BasketSubmitted
	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(submitted, nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFeedback_LostRaceIsInert(t *testing.T) {
	// Basket still looks Frozen but a concurrent notification wins the row
	// lock first; the storage fence reports it and this caller acks quietly.
	f := newFixture(t)
	payload := signedPayload(t, nil)

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("PlaceOrder", mock.Anything, int64(1), mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrAlreadySubmitted)

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.NoError(t, err)
}

func TestProcessFeedback_BadSignatureNothingRecorded(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, nil)
	payload["amount"] = "1"

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.ErrorIs(t, err, domain.ErrBadSignature)
	f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFeedback_MalformedIsRecordedThenRejected(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, func(fields map[string]string) {
		fields["command"] = "REFUND"
	})

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.AnythingOfType("domain.ProcessorResponse")).Return(nil).Once()
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.ErrorIs(t, err, domain.ErrFormat)
	f.recorder.AssertExpectations(t)
	f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFeedback_FailedPaymentIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, func(fields map[string]string) {
		fields["status"] = "00"
		delete(fields, "eci")
		delete(fields, "fort_id")
	})

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFeedback_PlacementFailureIsProcessingError(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, nil)

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("PlaceOrder", mock.Anything, int64(1), mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.ErrorIs(t, err, domain.ErrProcessing)
}

func TestProcessFeedback_RecordFailureIsOpaque(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, nil)

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(assert.AnError)

	err := f.service.ProcessFeedback(context.Background(), EndpointFeedback, payload)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRedirect_SuccessRendersWaitPage(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, nil)

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)

	result := f.service.ProcessRedirect(context.Background(), payload)

	assert.Equal(t, ActionWaitPage, result.Action)
	assert.Equal(t, "ECI-149295435400084008", result.TransactionID)
}

func TestProcessRedirect_FailedPaymentGoesToGenericError(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, func(fields map[string]string) {
		fields["status"] = "00"
	})

	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)

	result := f.service.ProcessRedirect(context.Background(), payload)

	assert.Equal(t, ActionGenericError, result.Action)
}

func TestProcessRedirect_BadSignatureRejectedWithoutRecording(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, nil)
	payload["status"] = "00"

	result := f.service.ProcessRedirect(context.Background(), payload)

	assert.Equal(t, ActionReject, result.Action)
	f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestProcessRedirect_UnknownBasketRecordedThenErrorPage(t *testing.T) {
	f := newFixture(t)
	payload := signedPayload(t, func(fields map[string]string) {
		fields["merchant_reference"] = "26-77-9000"
	})

	f.baskets.On("BasketByID", mock.Anything, int64(9000)).Return(nil, domain.ErrNotFound)
	f.recorder.On("Record", mock.Anything, mock.AnythingOfType("domain.ProcessorResponse")).Return(nil).Once()
	f.broker.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil)

	result := f.service.ProcessRedirect(context.Background(), payload)

	assert.Equal(t, ActionErrorPage, result.Action)
	assert.Equal(t, "ECI-149295435400084008", result.TransactionID)
	f.recorder.AssertExpectations(t)
}

func TestPaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unknown reference
	_, err := f.service.PaymentStatus(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Frozen: keep polling
	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(frozenBasket(), nil).Once()
	result, err := f.service.PaymentStatus(ctx, "26-77-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BasketFrozen, result.Status)
	assert.Empty(t, result.ReceiptURL)

	// Submitted: receipt link
	submitted := frozenBasket()
	submitted.Status = domain.BasketSubmitted
	f.baskets.On("BasketByID", mock.Anything, int64(1)).Return(submitted, nil).Once()
	f.orders.On("OrderByBasket", mock.Anything, int64(1)).Return(&domain.Order{Number: "EDX-100001"}, nil)
	result, err = f.service.PaymentStatus(ctx, "26-77-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BasketSubmitted, result.Status)
	assert.Equal(t, "https://shop.example.com/checkout/receipt/EDX-100001", result.ReceiptURL)

	// Open basket: payment never started, nothing to show
	f.baskets.On("BasketByID", mock.Anything, int64(2)).Return(&domain.Basket{ID: 2, Status: domain.BasketOpen}, nil)
	_, err = f.service.PaymentStatus(ctx, "26-77-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
