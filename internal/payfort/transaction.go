package payfort

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/domain"
)

// RequestContext carries the request-scoped inputs the builder needs,
// resolved once by the HTTP layer and threaded through explicitly.
type RequestContext struct {
	Locale       string
	ForwardedFor string
	RemoteAddr   string
}

// Processor builds outbound transaction requests and verifies inbound
// callbacks for one configured gateway account.
type Processor struct {
	cfg config.PayFortConfig
}

// NewProcessor validates the account-level digest choice up front.
func NewProcessor(cfg config.PayFortConfig) (*Processor, error) {
	if !SupportedDigest(cfg.SHAType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAlgorithm, cfg.SHAType)
	}
	return &Processor{cfg: cfg}, nil
}

// AmountMinorUnits converts the basket total into the ISO 4217 minor-unit
// integer the gateway expects. Banker's rounding, so 98.765 settles to 9876.
func AmountMinorUnits(basket *domain.Basket) int64 {
	return basket.Total.Mul(decimal.NewFromInt(100)).RoundBank(0).IntPart()
}

// Currency returns the settlement currency after checking that every basket
// line is priced in it.
func (p *Processor) Currency(basket *domain.Basket) (string, error) {
	for _, line := range basket.Lines {
		if line.Currency != "" && line.Currency != p.cfg.Currency {
			return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, line.Currency)
		}
	}
	return p.cfg.Currency, nil
}

// CustomerName sanitizes the owner's display name against the gateway's
// allowed character set.
func CustomerName(basket *domain.Basket) string {
	name := basket.OwnerName
	if strings.TrimSpace(name) == "" {
		name = "Name not set"
	}
	return SanitizeText(name, CustomerNamePattern, MaxCustomerNameLength, "_")
}

// Language maps the request locale onto the gateway's two supported
// languages, defaulting to English.
func Language(reqCtx RequestContext) string {
	locale, _, _ := strings.Cut(reqCtx.Locale, "-")
	locale = strings.ToLower(locale)
	if locale == "en" || locale == "ar" {
		return locale
	}
	return "en"
}

// IPAddress picks the first forwarded-for entry when present, the direct
// remote address otherwise.
func IPAddress(reqCtx RequestContext) string {
	addr := reqCtx.RemoteAddr
	if reqCtx.ForwardedFor != "" {
		addr, _, _ = strings.Cut(reqCtx.ForwardedFor, ",")
	}
	return strings.TrimSpace(addr)
}

// OrderDescription renders the basket lines for the gateway: course
// identifier when known (own, then parent's), title otherwise (own, then
// parent's), "-" as a last resort. Lines join with " // "; semicolons inside
// a line would collide with the gateway's own separator and become "_".
func OrderDescription(basket *domain.Basket) string {
	parts := make([]string, 0, len(basket.Lines))
	for _, line := range basket.Lines {
		ident := lineIdentifier(line)
		parts = append(parts, fmt.Sprintf("%d X %s", line.Quantity, strings.ReplaceAll(ident, ";", "_")))
	}
	return SanitizeText(strings.Join(parts, " // "), OrderDescriptionPattern, MaxOrderDescriptionLength, "_")
}

func lineIdentifier(line domain.BasketLine) string {
	if line.CourseID != "" {
		return line.CourseID
	}
	if line.ParentCourseID != "" {
		return line.ParentCourseID
	}
	if title := strings.TrimSpace(line.Title); title != "" {
		return title
	}
	if title := strings.TrimSpace(line.ParentTitle); title != "" {
		return title
	}
	return "-"
}

// TransactionParams assembles and signs the payment-initiation payload. The
// returned map is complete for signing purposes; fields added later for page
// rendering (the gateway page URL, a CSRF token) must never be added here.
func (p *Processor) TransactionParams(basket *domain.Basket, reqCtx RequestContext) (map[string]string, error) {
	reference, err := MerchantReference(p.cfg.SiteID, basket)
	if err != nil {
		return nil, err
	}
	currency, err := p.Currency(basket)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"command":             CommandPurchase,
		"access_code":         p.cfg.AccessCode,
		"merchant_identifier": p.cfg.MerchantIdentifier,
		"merchant_reference":  reference,
		"amount":              strconv.FormatInt(AmountMinorUnits(basket), 10),
		"currency":            currency,
		"language":            Language(reqCtx),
		"customer_email":      basket.OwnerEmail,
		"customer_name":       CustomerName(basket),
		"customer_ip":         IPAddress(reqCtx),
		"order_description":   OrderDescription(basket),
		"return_url":          p.cfg.ReturnURL,
	}

	signature, err := Sign(p.cfg.SHARequestPhrase, p.cfg.SHAType, params)
	if err != nil {
		return nil, err
	}
	params["signature"] = signature
	return params, nil
}

// VerifyResponse authenticates an inbound callback against the response
// phrase.
func (p *Processor) VerifyResponse(payload domain.CallbackPayload) error {
	return VerifySignature(p.cfg.SHAResponsePhrase, p.cfg.SHAType, payload)
}

// ValidateResponseFormat checks the callback against this account's
// settlement currency.
func (p *Processor) ValidateResponseFormat(payload domain.CallbackPayload) error {
	return ValidateFormat(payload, p.cfg.Currency)
}

// PaymentPageURL is the hosted checkout endpoint customers are posted to.
func (p *Processor) PaymentPageURL() string {
	return p.cfg.BaseAPIURL
}

// IssueCredit always fails: this integration cannot issue refunds or
// credits, and pretending otherwise would corrupt reconciliation.
func (p *Processor) IssueCredit(orderNumber string) error {
	return fmt.Errorf("%w: cannot issue credit for order %s", domain.ErrRefundsUnsupported, orderNumber)
}
