package payfort

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/domain"
)

func accountConfig() config.PayFortConfig {
	return config.PayFortConfig{
		MerchantIdentifier: "mid-123",
		AccessCode:         "access-456",
		SHARequestPhrase:   "req-phrase",
		SHAResponsePhrase:  "resp-phrase",
		SHAType:            "SHA-256",
		BaseAPIURL:         "https://sbcheckout.payfort.com/FortAPI/paymentPage",
		Currency:           "SAR",
		SiteID:             26,
		ReturnURL:          "https://shop.example.com/payment/payfort/response",
		ReceiptPageURL:     "https://shop.example.com/checkout/receipt/",
	}
}

func testBasket() *domain.Basket {
	return &domain.Basket{
		ID:         1,
		OwnerID:    77,
		OwnerEmail: "learner@example.com",
		OwnerName:  "Jana Al-Rashid",
		Status:     domain.BasketFrozen,
		Total:      decimal.RequireFromString("98.765"),
		Currency:   "SAR",
		Lines: []domain.BasketLine{
			{Quantity: 1, Currency: "SAR", CourseID: "course-v1:edX+DemoX+2026"},
			{Quantity: 2, Currency: "SAR", Title: "Verified; Certificate"},
		},
	}
}

func TestNewProcessor_RejectsUnknownDigest(t *testing.T) {
	cfg := accountConfig()
	cfg.SHAType = "MD5"

	_, err := NewProcessor(cfg)
	assert.ErrorIs(t, err, domain.ErrUnsupportedAlgorithm)
}

func TestAmountMinorUnits_BankersRounding(t *testing.T) {
	basket := testBasket()
	assert.Equal(t, int64(9876), AmountMinorUnits(basket))

	basket.Total = decimal.RequireFromString("10.00")
	assert.Equal(t, int64(1000), AmountMinorUnits(basket))

	basket.Total = decimal.RequireFromString("0.015")
	assert.Equal(t, int64(2), AmountMinorUnits(basket))
}

func TestCurrency_RejectsForeignLine(t *testing.T) {
	p, err := NewProcessor(accountConfig())
	require.NoError(t, err)

	basket := testBasket()
	basket.Lines[1].Currency = "USD"

	_, err = p.Currency(basket)
	require.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
	assert.Contains(t, err.Error(), "USD")
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "en", Language(RequestContext{Locale: "en-US"}))
	assert.Equal(t, "ar", Language(RequestContext{Locale: "AR-sa"}))
	assert.Equal(t, "en", Language(RequestContext{Locale: "fr-FR"}))
	assert.Equal(t, "en", Language(RequestContext{}))
}

func TestIPAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.1", IPAddress(RequestContext{
		ForwardedFor: " 10.0.0.1, 192.168.0.9",
		RemoteAddr:   "127.0.0.1",
	}))
	assert.Equal(t, "127.0.0.1", IPAddress(RequestContext{RemoteAddr: "127.0.0.1"}))
	assert.Equal(t, "", IPAddress(RequestContext{}))
}

func TestOrderDescription(t *testing.T) {
	got := OrderDescription(testBasket())

	// Course id wins over title; semicolons inside a line and the "+" signs,
	// which are outside the allowed character set, become "_".
	assert.Equal(t, "1 X course-v1:edX_DemoX_2026 // 2 X Verified_ Certificate", got)
}

func TestOrderDescription_FallbackChain(t *testing.T) {
	basket := &domain.Basket{Lines: []domain.BasketLine{
		{Quantity: 1, ParentCourseID: "course-v1:edX+Parent+2026"},
		{Quantity: 1, ParentTitle: "Parent Title"},
		{Quantity: 3},
	}}

	got := OrderDescription(basket)
	assert.Equal(t, "1 X course-v1:edX_Parent_2026 // 1 X Parent Title // 3 X -", got)
}

func TestOrderDescription_Truncated(t *testing.T) {
	basket := &domain.Basket{Lines: []domain.BasketLine{
		{Quantity: 1, Title: strings.Repeat("A", 400)},
	}}

	got := OrderDescription(basket)
	assert.Len(t, got, MaxOrderDescriptionLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestCustomerName(t *testing.T) {
	basket := testBasket()
	assert.Equal(t, "Jana Al-Rashid", CustomerName(basket))

	basket.OwnerName = "  "
	assert.Equal(t, "Name not set", CustomerName(basket))

	basket.OwnerName = "عميل"
	assert.Equal(t, "____", CustomerName(basket))
}

func TestTransactionParams_SignedAndComplete(t *testing.T) {
	p, err := NewProcessor(accountConfig())
	require.NoError(t, err)

	params, err := p.TransactionParams(testBasket(), RequestContext{
		Locale:     "ar",
		RemoteAddr: "203.0.113.7",
	})
	require.NoError(t, err)

	assert.Equal(t, "PURCHASE", params["command"])
	assert.Equal(t, "26-77-1", params["merchant_reference"])
	assert.Equal(t, "9876", params["amount"])
	assert.Equal(t, "SAR", params["currency"])
	assert.Equal(t, "ar", params["language"])
	assert.Equal(t, "203.0.113.7", params["customer_ip"])

	// Signature must verify over the other fields, and nothing unsigned may
	// be present.
	assert.NoError(t, VerifySignature("req-phrase", "SHA-256", domain.CallbackPayload(params)))
	assert.NotContains(t, params, "payment_page_url")
	assert.NotContains(t, params, "csrf_token")
}

func TestIssueCredit_FailsLoudly(t *testing.T) {
	p, err := NewProcessor(accountConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, p.IssueCredit("EDX-100001"), domain.ErrRefundsUnsupported)
}
