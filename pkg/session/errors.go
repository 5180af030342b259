package session

import (
	"errors"
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
)

// State guard rejections. None of them involves any I/O.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrKeyNotLoaded     = errors.New("no key loaded")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ErrProtocolFailure matches every *ProtocolError with errors.Is.
var ErrProtocolFailure = errors.New("protocol failure")

// ProtocolError reports a non-success status word. The status is kept
// verbatim so callers can tell failure reasons apart.
type ProtocolError struct {
	Op      string
	Command iso7816.InsCode
	Status  iso7816.StatusWord
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s failed with %s", e.Op, e.Command, e.Status.Verbose())
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolFailure
}
