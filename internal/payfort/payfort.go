// Package payfort implements the PayFort hosted-checkout protocol core:
// canonical signing, response validation, the merchant reference scheme and
// the outbound transaction builder.
//
// For reference, see https://paymentservices-reference.payfort.com/docs/api/build/index.html
package payfort

// SuccessStatus is the gateway status code of a settled purchase.
const SuccessStatus = "14"

// CommandPurchase is the only command this integration sends or accepts.
const CommandPurchase = "PURCHASE"

const (
	MaxOrderDescriptionLength = 150
	MaxCustomerNameLength     = 50
)

// Invalid-character patterns per gateway field. Each is a negated character
// class, so the pattern lists the characters the gateway allows; the literal
// `\.` inside a pattern is what enables ellipsis truncation in SanitizeText.
const (
	OrderDescriptionPattern = `[^A-Za-z0-9 '/\._\-#:$]`
	CustomerNamePattern     = `[^A-Za-z _\\/\-\.']`
)

// MandatoryResponseFields is the fixed set of fields every callback must
// carry before any of it is trusted.
var MandatoryResponseFields = []string{
	"merchant_reference",
	"command",
	"merchant_identifier",
	"amount",
	"currency",
	"response_code",
	"signature",
	"status",
}
