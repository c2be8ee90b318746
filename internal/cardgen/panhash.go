package cardgen

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashPANHMAC computes HMAC-SHA256 over the PAN digits using a secret key (pepper).
// Do not log or persist the input PAN here; callers must sanitize logs separately.
func HashPANHMAC(pan string, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(NormalizePAN(pan)))
	return h.Sum(nil)
}

// HashPANHex is HashPANHMAC hex-encoded, for text columns and JSON.
func HashPANHex(pan string, key []byte) string {
	return hex.EncodeToString(HashPANHMAC(pan, key))
}
