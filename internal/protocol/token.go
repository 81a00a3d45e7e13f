package protocol

import (
	"encoding/hex"
	"fmt"
)

// TokenLength is the size of the shared authentication secret
const TokenLength = 16

// Token is the 16-byte secret the clock expects in both auth frames
type Token [TokenLength]byte

// TokenFromBytes accepts a raw 16-byte token
func TokenFromBytes(b []byte) (Token, error) {
	var t Token
	if len(b) != TokenLength {
		return t, NewValidationError(fmt.Sprintf("token must be exactly %d bytes, got %d", TokenLength, len(b)))
	}
	copy(t[:], b)
	return t, nil
}

// ParseToken accepts a hex string with any separators ("0e:65:9b...",
// "0e659b...") that reduces to exactly 32 hex digits.
func ParseToken(s string) (Token, error) {
	var t Token
	digits := hexDigits(s)
	if len(digits) != TokenLength*2 {
		return t, NewValidationError(fmt.Sprintf("token must be %d bytes = %d hex digits (separators allowed), got %d digits",
			TokenLength, TokenLength*2, len(digits)))
	}
	if _, err := hex.Decode(t[:], []byte(digits)); err != nil {
		return t, NewValidationError(fmt.Sprintf("invalid token: %v", err))
	}
	return t, nil
}

// String returns the lowercase hex form
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// Masked returns the token with everything but the first and last two bytes hidden
func (t Token) Masked() string {
	s := t.String()
	return s[:4] + "************************" + s[len(s)-4:]
}

// IsZero reports whether the token was never set
func (t Token) IsZero() bool {
	return t == Token{}
}
