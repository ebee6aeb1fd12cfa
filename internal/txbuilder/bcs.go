package txbuilder

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// encodeU64 is the BCS encoding of a u64: eight little-endian bytes.
func encodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// encodeAddress is the BCS encoding of an address: its 32 raw bytes.
func encodeAddress(addr string) ([]byte, error) {
	raw, err := sui.AddressBytes(addr)
	if err != nil {
		return nil, err
	}
	return raw[:], nil
}

// encodeString is the BCS encoding of a Move String: ULEB128 length
// followed by the UTF-8 bytes.
func encodeString(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUTF8, s)
	}
	buf := appendULEB128(make([]byte, 0, len(s)+2), uint64(len(s)))
	return append(buf, s...), nil
}

func appendULEB128(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func pureBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
