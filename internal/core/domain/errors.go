package domain

import "errors"

var (
	// ErrConfiguration covers bad local setup: missing account settings,
	// out-of-bounds retry parameters, invalid builder inputs. Fatal, surfaced.
	ErrConfiguration = errors.New("invalid gateway configuration")

	// ErrUnsupportedAlgorithm is returned for a digest algorithm outside the
	// fixed supported set.
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")

	// ErrUnsupportedCurrency is returned when a basket line is priced in a
	// currency other than the single settlement currency.
	ErrUnsupportedCurrency = errors.New("currency not supported")

	// ErrBadSignature marks a trust-boundary failure. Callbacks failing the
	// signature check are never recorded and always answered with 404.
	ErrBadSignature = errors.New("bad response signature")

	// ErrFormat marks a structural or business-rule failure in an otherwise
	// authentic callback. Recorded for audit, then rejected.
	ErrFormat = errors.New("invalid response format")

	// ErrNotFound covers an unresolvable basket and, deliberately opaque to
	// the gateway, persistence failures while recording a response.
	ErrNotFound = errors.New("basket not found")

	// ErrAlreadySubmitted is the idempotency fence: the basket was finalized
	// by an earlier callback, so this one is an inert replay.
	ErrAlreadySubmitted = errors.New("basket already submitted")

	// ErrProcessing wraps failures of the atomic payment-handling and
	// order-creation step.
	ErrProcessing = errors.New("order placement failed")

	// ErrRefundsUnsupported: refunds and credits are not supported by this
	// integration and must fail loudly.
	ErrRefundsUnsupported = errors.New("refunds are not supported")

	ErrStorageUnavailable = errors.New("database is unavailable")
	ErrBrokerUnavailable  = errors.New("kafka broker is unavailable")
)
