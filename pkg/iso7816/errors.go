package iso7816

import (
	"errors"
	"fmt"
)

// ErrChannelFault matches every *ChannelFault with errors.Is.
var ErrChannelFault = errors.New("channel fault")

// ChannelFault reports an I/O level failure (card removed, reader gone,
// malformed transport frame). No status word exists for such an exchange.
type ChannelFault struct {
	Err error
}

func (e *ChannelFault) Error() string {
	return fmt.Sprintf("channel fault: %v", e.Err)
}

func (e *ChannelFault) Unwrap() error {
	return e.Err
}

func (e *ChannelFault) Is(target error) bool {
	return target == ErrChannelFault
}
