package session

import (
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/mifare"
)

// Kind is the name of a session state. The values double as looplab/fsm
// state names.
type Kind string

const (
	Disconnected  Kind = "disconnected"
	Connected     Kind = "connected"
	KeyLoaded     Kind = "key_loaded"
	Authenticated Kind = "authenticated"
)

// Events of the session state machine.
const (
	eventConnect      = "connect"
	eventLoadKey      = "load_key"
	eventAuthenticate = "authenticate"
	eventReject       = "reject"
	eventDisconnect   = "disconnect"
	eventFault        = "fault"
)

var allStates = []string{string(Disconnected), string(Connected), string(KeyLoaded), string(Authenticated)}

// State is a snapshot of the session state and its parameters.
//
// KeyType is set in KeyLoaded and Authenticated. Address and Block (the
// absolute block number) are set in Authenticated only.
type State struct {
	Kind    Kind
	KeyType mifare.KeyType
	Address mifare.Address
	Block   int
}

// Is reports whether the state is of kind k.
func (s State) Is(k Kind) bool { return s.Kind == k }

func (s State) String() string {
	switch s.Kind {
	case KeyLoaded:
		return fmt.Sprintf("%s(key %s)", s.Kind, s.KeyType)
	case Authenticated:
		return fmt.Sprintf("%s(%s, key %s)", s.Kind, s.Address, s.KeyType)
	default:
		return string(s.Kind)
	}
}
