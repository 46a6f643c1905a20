package payfort

import (
	"fmt"
	"regexp"
	"strconv"

	"payfort-gateway/internal/core/domain"
)

var merchantReferencePattern = regexp.MustCompile(`^\d+-\d+-\d+$`)

// ValidateFormat runs the schema and business-rule checks on an
// authenticated callback payload. Payloads arrive URL-form-encoded, so every
// value is a string by construction; presence and content are what is
// checked here. The settlement currency is the single currency the account
// is configured for.
func ValidateFormat(payload domain.CallbackPayload, settlementCurrency string) error {
	for _, field := range MandatoryResponseFields {
		if _, ok := payload[field]; !ok {
			return fmt.Errorf("%w: missing field in response: %s", domain.ErrFormat, field)
		}
	}

	amount, err := strconv.Atoi(payload["amount"])
	if err != nil || amount < 0 || payload["amount"] != strconv.Itoa(amount) {
		return fmt.Errorf(
			"%w: invalid amount in response (not a positive integer): %s",
			domain.ErrFormat, payload["amount"],
		)
	}

	if payload["currency"] != settlementCurrency {
		return fmt.Errorf("%w: invalid currency in response: %s", domain.ErrFormat, payload["currency"])
	}

	if payload["command"] != CommandPurchase {
		return fmt.Errorf("%w: invalid command in response: %s", domain.ErrFormat, payload["command"])
	}

	if !merchantReferencePattern.MatchString(payload["merchant_reference"]) {
		return fmt.Errorf(
			"%w: invalid merchant_reference in response: %s",
			domain.ErrFormat, payload["merchant_reference"],
		)
	}

	// A successful callback without gateway-side transaction identifiers is
	// never acceptable. Present-but-empty fields pass; the gateway sends
	// empty strings for values it has no data for, and those fall back to
	// "none" in the derived transaction id.
	if payload["status"] == SuccessStatus {
		_, hasECI := payload["eci"]
		_, hasFortID := payload["fort_id"]
		if !hasECI || !hasFortID {
			return fmt.Errorf(
				"%w: unexpected successful payment that lacks eci or fort_id: %s",
				domain.ErrFormat, payload["merchant_reference"],
			)
		}
	}

	return nil
}
