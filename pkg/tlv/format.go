package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FormatBytes renders data for reports. Supported formats are "ascii" (hex
// followed by the printable rendering), "int" (big endian integer) and the
// default plain upper case hex.
func FormatBytes(data []byte, format string) string {
	switch format {
	case "ascii":
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case "int":
		var integer int
		for _, b := range data {
			integer = (integer << 8) | int(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, integer)
	default:
		return strings.ToUpper(hex.EncodeToString(data))
	}
}

// MakeSafeASCII replaces every non printable byte with a dot, so the result
// always has one character per input byte.
func MakeSafeASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
