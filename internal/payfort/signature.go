package payfort

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"payfort-gateway/internal/core/domain"
)

// supportedDigests is the fixed set of algorithms the gateway account can be
// configured with.
var supportedDigests = map[string]func() hash.Hash{
	"SHA-256": sha256.New,
	"SHA-512": sha512.New,
}

// SupportedDigest reports whether the account-level digest choice is valid.
func SupportedDigest(method string) bool {
	_, ok := supportedDigests[method]
	return ok
}

// Sign computes the gateway signature over params: the canonical string is
// the secret phrase, then every key=value pair sorted case-insensitively by
// key with no separator or escaping, then the phrase again. The digest is
// returned as lowercase hex. This is not an HMAC; the construction is fixed
// by the gateway wire format.
func Sign(phrase, method string, params map[string]string) (string, error) {
	if phrase == "" {
		return "", fmt.Errorf("%w: empty signature phrase", domain.ErrConfiguration)
	}
	if method == "" {
		return "", fmt.Errorf("%w: empty digest method", domain.ErrConfiguration)
	}
	newDigest, ok := supportedDigests[method]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedAlgorithm, method)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	// Case-insensitive sort; the gateway field set never collides after
	// lowercasing and additions must keep it that way.
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	var canonical strings.Builder
	canonical.WriteString(phrase)
	for _, k := range keys {
		canonical.WriteString(k)
		canonical.WriteString("=")
		canonical.WriteString(params[k])
	}
	canonical.WriteString(phrase)

	digest := newDigest()
	digest.Write([]byte(canonical.String()))
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// VerifySignature pops the signature field from a copy of the payload,
// recomputes the expected value over the rest and compares in constant time.
func VerifySignature(phrase, method string, payload domain.CallbackPayload) error {
	data := payload.Clone()
	signature, ok := data["signature"]
	delete(data, "signature")
	if !ok || signature == "" {
		return fmt.Errorf("%w: signature not found", domain.ErrBadSignature)
	}

	expected, err := Sign(phrase, method, data)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return fmt.Errorf(
			"%w: signature mismatch, merchant_reference: %s",
			domain.ErrBadSignature, referenceOrNone(data),
		)
	}
	return nil
}

func referenceOrNone(payload domain.CallbackPayload) string {
	if ref := payload["merchant_reference"]; ref != "" {
		return ref
	}
	return "none"
}
