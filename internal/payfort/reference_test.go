package payfort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payfort-gateway/internal/core/domain"
)

func TestMerchantReference(t *testing.T) {
	basket := &domain.Basket{ID: 1, OwnerID: 77}

	ref, err := MerchantReference(26, basket)

	require.NoError(t, err)
	assert.Equal(t, "26-77-1", ref)
}

func TestMerchantReference_RejectsInvalidInputs(t *testing.T) {
	valid := &domain.Basket{ID: 1, OwnerID: 77}

	_, err := MerchantReference(0, valid)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = MerchantReference(26, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = MerchantReference(26, &domain.Basket{ID: 1})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDecodeBasketID(t *testing.T) {
	tests := []struct {
		reference string
		want      int64
		ok        bool
	}{
		{"26-77-1", 1, true},
		{"1-2-9000", 9000, true},
		{"26-77-", 0, false},
		{"26-77-abc", 0, false},
		{"no hyphen", 0, false},
		{"26-77-0", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := DecodeBasketID(tt.reference)
		assert.Equal(t, tt.ok, ok, "reference %q", tt.reference)
		assert.Equal(t, tt.want, got, "reference %q", tt.reference)
	}
}

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "ECI-123", TransactionID(domain.CallbackPayload{"eci": "ECI", "fort_id": "123"}))
	assert.Equal(t, "none-123", TransactionID(domain.CallbackPayload{"fort_id": "123"}))
	assert.Equal(t, "ECI-none", TransactionID(domain.CallbackPayload{"eci": "ECI", "fort_id": ""}))
	assert.Equal(t, "none-none", TransactionID(domain.CallbackPayload{}))
}
