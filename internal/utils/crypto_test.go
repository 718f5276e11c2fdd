package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSHA256Hex(t *testing.T) {
	// RFC 4231 test case 2
	got := HMACSHA256Hex([]byte("Jefe"), []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestVerifyHMACSHA256Hex(t *testing.T) {
	secret := []byte("secret")
	message := []byte("order_1|pay_1")
	valid := HMACSHA256Hex(secret, message)

	tests := []struct {
		name      string
		signature string
		want      bool
	}{
		{name: "valid", signature: valid, want: true},
		{name: "uppercase hex", signature: strings.ToUpper(valid), want: false},
		{name: "leading space", signature: " " + valid, want: false},
		{name: "trailing newline", signature: valid + "\n", want: false},
		{name: "empty", signature: "", want: false},
		{name: "truncated", signature: valid[:len(valid)-2], want: false},
		{name: "wrong secret", signature: HMACSHA256Hex([]byte("other"), message), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyHMACSHA256Hex(secret, message, tt.signature))
		})
	}
}

func TestVerifyHMACSHA256Hex_AnySingleCharFlipFails(t *testing.T) {
	secret := []byte("secret")
	message := []byte("order_1|pay_1")
	valid := HMACSHA256Hex(secret, message)

	for i := range valid {
		flipped := []byte(valid)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		assert.False(t, VerifyHMACSHA256Hex(secret, message, string(flipped)), "position %d", i)

		if c := valid[i]; c >= 'a' && c <= 'f' {
			upper := []byte(valid)
			upper[i] = c - 'a' + 'A'
			assert.False(t, VerifyHMACSHA256Hex(secret, message, string(upper)), "uppercase at position %d", i)
		}
	}
}
