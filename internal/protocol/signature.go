package protocol

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// SignatureLength is the size of a ringtone identifier
const SignatureLength = 4

// Signature selects which stored ringtone the clock plays
type Signature [SignatureLength]byte

// Custom upload targets. Uploads alternate between them so the active
// ringtone is never overwritten.
var (
	CustomSlotDead = Signature{0xde, 0xad, 0xde, 0xad}
	CustomSlotBeef = Signature{0xbe, 0xef, 0xbe, 0xef}
)

// BuiltinRingtones maps the names of the factory ringtones to their signatures
var BuiltinRingtones = map[string]Signature{
	"beep":          {0xfd, 0xc3, 0x66, 0xa5},
	"digital_1":     {0x09, 0x61, 0xbb, 0x77},
	"digital_2":     {0xba, 0x2c, 0x2c, 0x8c},
	"cuckoo":        {0xea, 0x2d, 0x4c, 0x02},
	"telephone":     {0x79, 0x1b, 0xac, 0xb3},
	"exotic_guitar": {0x1d, 0x01, 0x9f, 0xd6},
	"lively_piano":  {0x6e, 0x70, 0xb6, 0x59},
	"story_piano":   {0x8f, 0x00, 0x48, 0x86},
	"forest_piano":  {0x26, 0x52, 0x25, 0x19},
}

// String returns the lowercase hex form, e.g. "deaddead"
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// IsCustom reports whether s is one of the two upload slots
func (s Signature) IsCustom() bool {
	return s == CustomSlotDead || s == CustomSlotBeef
}

// ChooseNextCustomSlot returns the custom slot that is not current.
// Anything other than DEAD (including a built-in or unknown signature)
// yields DEAD.
func ChooseNextCustomSlot(current *Signature) Signature {
	if current != nil && *current == CustomSlotDead {
		return CustomSlotBeef
	}
	return CustomSlotDead
}

// ParseSlotSignature accepts "dead", "beef", "deaddead", "beefbeef" or
// 8 hex digits with arbitrary separators.
func ParseSlotSignature(s string) (Signature, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "dead", "deaddead":
		return CustomSlotDead, nil
	case "beef", "beefbeef":
		return CustomSlotBeef, nil
	}

	var sig Signature
	digits := hexDigits(v)
	if len(digits) != SignatureLength*2 {
		return sig, NewValidationError(fmt.Sprintf("signature must be dead, beef or %d hex digits, got %q",
			SignatureLength*2, s))
	}
	if _, err := hex.Decode(sig[:], []byte(digits)); err != nil {
		return sig, NewValidationError(fmt.Sprintf("invalid signature %q: %v", s, err))
	}
	return sig, nil
}

// ParseSignature resolves a built-in ringtone name ("lively piano",
// "lively-piano" and "lively_piano" are equivalent) or falls back to
// ParseSlotSignature.
func ParseSignature(s string) (Signature, error) {
	name := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	if sig, ok := BuiltinRingtones[name]; ok {
		return sig, nil
	}
	return ParseSlotSignature(s)
}

// SignatureName returns the built-in name, "custom_dead", "custom_beef" or "unknown"
func SignatureName(sig Signature) string {
	switch sig {
	case CustomSlotDead:
		return "custom_dead"
	case CustomSlotBeef:
		return "custom_beef"
	}
	for name, s := range BuiltinRingtones {
		if s == sig {
			return name
		}
	}
	return "unknown"
}

// BuiltinRingtoneNames returns the built-in names in sorted order
func BuiltinRingtoneNames() []string {
	names := make([]string, 0, len(BuiltinRingtones))
	for name := range BuiltinRingtones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func hexDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
