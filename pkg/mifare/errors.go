package mifare

import "errors"

// Local validation failures. They are raised before any I/O and never reach
// the reader.
var (
	ErrInvalidKeyLength   = errors.New("invalid key length")
	ErrInvalidKeyType     = errors.New("invalid key type")
	ErrInvalidAddress     = errors.New("invalid block address")
	ErrInvalidBlockLength = errors.New("invalid block length")
	ErrAccessBitsCorrupt  = errors.New("access bits corrupt")
	ErrInvalidATR         = errors.New("invalid ATR")
)
