package sui

import (
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// AddressLength is the byte length of a Sui address.
const AddressLength = 32

var ErrInvalidAddress = errors.New("invalid sui address")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsValidAddress reports whether s is a 0x-prefixed, 64 hex digit address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ValidateAddress returns ErrInvalidAddress unless s is a full-length address.
func ValidateAddress(s string) error {
	if !IsValidAddress(s) {
		return ErrInvalidAddress
	}
	return nil
}

// NormalizeAddress lower-cases a valid address.
func NormalizeAddress(s string) (string, error) {
	if err := ValidateAddress(s); err != nil {
		return "", err
	}
	return strings.ToLower(s), nil
}

// AddressBytes decodes a valid address into its 32 raw bytes.
func AddressBytes(s string) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	if err := ValidateAddress(s); err != nil {
		return out, err
	}
	if _, err := hex.Decode(out[:], []byte(s[2:])); err != nil {
		return out, ErrInvalidAddress
	}
	return out, nil
}

// ShortAddress renders the first and last eight characters of an address.
func ShortAddress(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "..." + s[len(s)-8:]
}
