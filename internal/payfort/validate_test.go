package payfort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"payfort-gateway/internal/core/domain"
)

func validPayload() domain.CallbackPayload {
	return domain.CallbackPayload{
		"merchant_reference":  "26-77-1",
		"command":             "PURCHASE",
		"merchant_identifier": "mid-123",
		"amount":              "9876",
		"currency":            "SAR",
		"response_code":       "14000",
		"signature":           "deadbeef",
		"status":              "14",
		"eci":                 "ECI",
		"fort_id":             "149295435400084008",
	}
}

func TestValidateFormat_Accepts(t *testing.T) {
	assert.NoError(t, ValidateFormat(validPayload(), "SAR"))
}

func TestValidateFormat_EveryMandatoryFieldRequired(t *testing.T) {
	for _, field := range MandatoryResponseFields {
		payload := validPayload()
		delete(payload, field)

		err := ValidateFormat(payload, "SAR")
		assert.ErrorIs(t, err, domain.ErrFormat, "missing %s must be rejected", field)
	}
}

func TestValidateFormat_Amount(t *testing.T) {
	for _, amount := range []string{"-1", "12.5", "00123", " 9876", "9876 ", "abc", ""} {
		payload := validPayload()
		payload["amount"] = amount

		err := ValidateFormat(payload, "SAR")
		assert.ErrorIs(t, err, domain.ErrFormat, "amount %q must be rejected", amount)
	}

	payload := validPayload()
	payload["amount"] = "0"
	assert.NoError(t, ValidateFormat(payload, "SAR"))
}

func TestValidateFormat_Currency(t *testing.T) {
	payload := validPayload()
	payload["currency"] = "USD"

	assert.ErrorIs(t, ValidateFormat(payload, "SAR"), domain.ErrFormat)
}

func TestValidateFormat_Command(t *testing.T) {
	payload := validPayload()
	payload["command"] = "AUTHORIZATION"

	assert.ErrorIs(t, ValidateFormat(payload, "SAR"), domain.ErrFormat)
}

func TestValidateFormat_MerchantReference(t *testing.T) {
	for _, ref := range []string{"26-77", "a-77-1", "26-77-1-2x", "", "26_77_1"} {
		payload := validPayload()
		payload["merchant_reference"] = ref

		err := ValidateFormat(payload, "SAR")
		assert.ErrorIs(t, err, domain.ErrFormat, "reference %q must be rejected", ref)
	}
}

func TestValidateFormat_SuccessNeedsGatewayIdentifiers(t *testing.T) {
	for _, field := range []string{"eci", "fort_id"} {
		payload := validPayload()
		delete(payload, field)

		err := ValidateFormat(payload, "SAR")
		assert.ErrorIs(t, err, domain.ErrFormat, "successful payment without %s must be rejected", field)
	}

	// Present-but-empty identifiers are accepted; only truly missing keys
	// fail the sanity check.
	for _, field := range []string{"eci", "fort_id"} {
		payload := validPayload()
		payload[field] = ""

		assert.NoError(t, ValidateFormat(payload, "SAR"), "empty %s must be accepted", field)
	}

	// A failed payment may legitimately lack both.
	payload := validPayload()
	payload["status"] = "00"
	delete(payload, "eci")
	delete(payload, "fort_id")
	assert.NoError(t, ValidateFormat(payload, "SAR"))
}
