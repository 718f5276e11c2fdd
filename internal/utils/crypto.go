package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256Hex returns the lowercase hex HMAC-SHA256 of message under secret.
func HMACSHA256Hex(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256Hex compares signature byte for byte against the lowercase
// hex digest in constant time. An empty signature never matches.
func VerifyHMACSHA256Hex(secret, message []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := HMACSHA256Hex(secret, message)
	return hmac.Equal([]byte(signature), []byte(expected))
}
