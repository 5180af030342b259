package mifare

import (
	"fmt"
	"strings"

	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

// KeyLength is the size of a Mifare Classic sector key.
const KeyLength = 6

// Key is a 6 byte sector key. Its fixed size makes an invalid key
// unrepresentable once built.
type Key [KeyLength]byte

// DefaultKey is the factory transport key (FF FF FF FF FF FF).
var DefaultKey = Key{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// NewKey builds a Key from raw bytes.
func NewKey(b []byte) (Key, error) {
	var k Key
	if len(b) != KeyLength {
		return k, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(b), KeyLength)
	}
	copy(k[:], b)
	return k, nil
}

// ParseKey builds a Key from hex pairs, with or without separating spaces.
func ParseKey(s string) (Key, error) {
	b, err := tlv.ParseHex(s)
	if err != nil {
		return Key{}, err
	}
	return NewKey(b)
}

// Bytes returns a copy of the key bytes.
func (k Key) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}

func (k Key) String() string {
	return tlv.Spaced(k[:])
}

// KeyType selects which of the two sector keys authentication targets. The
// values are the key type bytes of the GENERAL AUTHENTICATE data field.
type KeyType byte

const (
	KeyA KeyType = 0x60
	KeyB KeyType = 0x61
)

// ParseKeyType accepts "A" or "B" (case insensitive).
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return KeyA, nil
	case "B":
		return KeyB, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKeyType, s)
}

// Valid reports whether k is KeyA or KeyB.
func (k KeyType) Valid() bool {
	return k == KeyA || k == KeyB
}

func (k KeyType) String() string {
	switch k {
	case KeyA:
		return "A"
	case KeyB:
		return "B"
	default:
		return fmt.Sprintf("KeyType(0x%02X)", byte(k))
	}
}
