package payfort

import (
	"fmt"
	"strconv"
	"strings"

	"payfort-gateway/internal/core/domain"
)

// MerchantReference encodes (site, owner, basket) into the opaque reference
// the gateway echoes back. All three IDs are positive integers, so the
// hyphen-joined form decodes unambiguously.
func MerchantReference(siteID int64, basket *domain.Basket) (string, error) {
	if siteID <= 0 {
		return "", fmt.Errorf("%w: site id must be a positive integer, got %d", domain.ErrConfiguration, siteID)
	}
	if basket == nil || basket.ID <= 0 || basket.OwnerID <= 0 {
		return "", fmt.Errorf("%w: merchant reference needs a stored basket with an owner", domain.ErrConfiguration)
	}
	return fmt.Sprintf("%d-%d-%d", siteID, basket.OwnerID, basket.ID), nil
}

// DecodeBasketID extracts the basket id from a merchant reference: the
// substring after the last hyphen, parsed as a positive integer. Any parse
// failure means "basket not found" for the caller, never an error.
func DecodeBasketID(reference string) (int64, bool) {
	idx := strings.LastIndexByte(reference, '-')
	if idx < 0 || idx == len(reference)-1 {
		return 0, false
	}
	id, err := strconv.ParseInt(reference[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// TransactionID derives the audit key of a callback from its gateway-side
// identifiers, each defaulting to the literal "none" when absent or empty.
func TransactionID(payload domain.CallbackPayload) string {
	eci := payload["eci"]
	if eci == "" {
		eci = "none"
	}
	fortID := payload["fort_id"]
	if fortID == "" {
		fortID = "none"
	}
	return eci + "-" + fortID
}
