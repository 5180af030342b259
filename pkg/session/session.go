package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
	"github.com/gregLibert/mifare-tools/pkg/mifare"
)

// Channel is the card connection a Session drives. reader.Reader is the
// PC/SC implementation.
type Channel interface {
	Connect() error
	Transmit(cmd []byte) ([]byte, error)
	ATR() ([]byte, error)
	Disconnect() error
}

// Session tracks the authentication state of one card connection and only
// lets through commands that state allows.
//
// A Session has no internal locking: it belongs to a single control flow
// and callers must serialise their calls.
type Session struct {
	id       uuid.UUID
	channel  Channel
	client   *iso7816.Client
	recorder *iso7816.Recorder
	builder  mifare.CommandBuilder
	machine  *fsm.FSM
	log      logrus.FieldLogger

	geometry      mifare.Geometry
	fixedGeometry bool
	now           func() time.Time

	keyType   mifare.KeyType
	authBlock int
	uid       []byte
	atr       []byte
	card      *mifare.CardInfo
}

// Option configures a Session.
type Option func(*Session)

// WithGeometry pins the card layout. Without it the layout is taken from
// the ATR at connect time, falling back to Mifare Classic 1K.
func WithGeometry(g mifare.Geometry) Option {
	return func(s *Session) {
		s.geometry = g
		s.fixedGeometry = true
	}
}

// WithLogger sets the logger. Exchanges are logged at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithRecorder records exchanges into rec instead of a private recorder.
func WithRecorder(rec *iso7816.Recorder) Option {
	return func(s *Session) { s.recorder = rec }
}

// WithClock sets the time source used to stamp trace entries.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a disconnected Session over channel.
func New(channel Channel, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New(),
		channel:   channel,
		geometry:  mifare.Geometry1K,
		log:       logrus.StandardLogger().WithField("pkg", "session"),
		now:       time.Now,
		authBlock: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session", s.id.String())

	if s.recorder == nil {
		s.recorder = iso7816.NewRecorder(NewLogSink(s.log))
	}
	s.client = iso7816.NewClient(channel, s.recorder)
	s.client.Now = s.now
	s.builder = mifare.NewCommandBuilder(s.geometry)

	s.machine = fsm.NewFSM(
		string(Disconnected),
		fsm.Events{
			{Name: eventConnect, Src: []string{string(Disconnected)}, Dst: string(Connected)},
			{Name: eventLoadKey, Src: []string{string(Connected), string(KeyLoaded), string(Authenticated)}, Dst: string(KeyLoaded)},
			{Name: eventAuthenticate, Src: []string{string(KeyLoaded), string(Authenticated)}, Dst: string(Authenticated)},
			{Name: eventReject, Src: []string{string(Connected), string(KeyLoaded), string(Authenticated)}, Dst: string(Connected)},
			{Name: eventDisconnect, Src: allStates, Dst: string(Disconnected)},
			{Name: eventFault, Src: allStates, Dst: string(Disconnected)},
		},
		fsm.Callbacks{
			"enter_state":                   s.onEnterState,
			"enter_" + string(Connected):    s.onEnterConnected,
			"enter_" + string(Disconnected): s.onEnterDisconnected,
		},
	)
	return s
}

func (s *Session) onEnterState(_ context.Context, e *fsm.Event) {
	s.log.WithFields(logrus.Fields{
		"event": e.Event,
		"from":  e.Src,
		"to":    e.Dst,
	}).Debug("state transition")
}

// Connected is entered on connect and on rejected key or authentication:
// whatever key or authentication was held is gone.
func (s *Session) onEnterConnected(_ context.Context, _ *fsm.Event) {
	s.keyType = 0
	s.authBlock = -1
}

func (s *Session) onEnterDisconnected(_ context.Context, _ *fsm.Event) {
	s.keyType = 0
	s.authBlock = -1
	s.uid = nil
	s.atr = nil
	s.card = nil
}

// fire runs a state machine event. Self transitions are not errors.
func (s *Session) fire(event string) error {
	err := s.machine.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return fmt.Errorf("state machine: %w", err)
	}
	return nil
}

func (s *Session) kind() Kind {
	return Kind(s.machine.Current())
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id.String()
}

// Geometry returns the card layout in use.
func (s *Session) Geometry() mifare.Geometry {
	return s.geometry
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	st := State{Kind: s.kind(), Block: -1}
	switch st.Kind {
	case KeyLoaded:
		st.KeyType = s.keyType
	case Authenticated:
		st.KeyType = s.keyType
		st.Block = s.authBlock
		if addr, err := s.geometry.Locate(s.authBlock); err == nil {
			st.Address = addr
		}
	}
	return st
}

// UID returns the UID read at connect time, nil when disconnected.
func (s *Session) UID() []byte {
	return append([]byte(nil), s.uid...)
}

// ATR returns the ATR read at connect time, nil when disconnected.
func (s *Session) ATR() []byte {
	return append([]byte(nil), s.atr...)
}

// CardInfo returns what the ATR told about the card, or nil.
func (s *Session) CardInfo() *mifare.CardInfo {
	return s.card
}

// Trace returns a copy of every exchange recorded since the last ClearTrace.
func (s *Session) Trace() iso7816.Trace {
	return s.recorder.All()
}

// ClearTrace empties the trace.
func (s *Session) ClearTrace() {
	s.recorder.Clear()
}

// release disconnects the channel and resets the state.
func (s *Session) release(event string) {
	if err := s.channel.Disconnect(); err != nil {
		s.log.WithError(err).Warn("channel disconnect failed")
	}
	if err := s.fire(event); err != nil {
		s.log.WithError(err).Error("reset to disconnected failed")
	}
}

// exchange sends cmd. A channel fault resets the session; a non-success
// status becomes a *ProtocolError and leaves the state alone.
func (s *Session) exchange(op string, cmd *iso7816.CommandAPDU) (iso7816.Transaction, error) {
	tx, err := s.client.Send(cmd)
	if err != nil {
		if errors.Is(err, iso7816.ErrChannelFault) {
			s.log.WithError(err).WithField("op", op).Warn("channel fault, session reset")
			s.release(eventFault)
		}
		return tx, fmt.Errorf("%s: %w", op, err)
	}
	if !tx.IsSuccess() {
		return tx, &ProtocolError{Op: op, Command: cmd.Instruction.Raw, Status: tx.Response.Status}
	}
	return tx, nil
}

// Connect opens the channel and reads the card UID.
func (s *Session) Connect() ([]byte, error) {
	if s.kind() != Disconnected {
		return nil, ErrAlreadyConnected
	}

	if err := s.channel.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", &iso7816.ChannelFault{Err: err})
	}

	atr, err := s.channel.ATR()
	if err != nil {
		s.release(eventFault)
		return nil, fmt.Errorf("connect: %w", &iso7816.ChannelFault{Err: err})
	}
	card := s.identify(atr)

	tx, err := s.exchange("connect", s.builder.GetUID())
	if err != nil {
		if errors.Is(err, ErrProtocolFailure) {
			s.release(eventDisconnect)
		}
		return nil, err
	}

	if err := s.fire(eventConnect); err != nil {
		return nil, err
	}
	s.atr = atr
	s.card = card
	s.uid = append([]byte(nil), tx.Response.Data...)

	s.log.WithFields(logrus.Fields{
		"uid":  fmt.Sprintf("%X", s.uid),
		"card": s.describeCard(),
	}).Info("card connected")
	return s.UID(), nil
}

// identify decodes the ATR and, unless pinned, adopts the card layout.
// Cards that do not announce a Classic layout get Mifare Classic 1K.
func (s *Session) identify(atr []byte) *mifare.CardInfo {
	info, err := mifare.ParseATR(atr)
	if err != nil {
		s.log.WithError(err).Warn("unreadable ATR")
		info = nil
	}
	if s.fixedGeometry {
		return info
	}
	s.geometry = mifare.Geometry1K
	if info != nil {
		if g, ok := info.Geometry(); ok {
			s.geometry = g
		}
	}
	s.builder = mifare.NewCommandBuilder(s.geometry)
	return info
}

func (s *Session) describeCard() string {
	if s.card == nil {
		return "unknown"
	}
	return s.card.Name()
}

// LoadKey loads a 6 byte key into the reader for later authentication with
// keyType. Any previous authentication is dropped.
func (s *Session) LoadKey(key []byte, keyType mifare.KeyType) error {
	if s.kind() == Disconnected {
		return ErrNotConnected
	}
	if !keyType.Valid() {
		return fmt.Errorf("%w: 0x%02X", mifare.ErrInvalidKeyType, byte(keyType))
	}
	cmd, err := s.builder.LoadKeyBytes(key)
	if err != nil {
		return err
	}

	if _, err := s.exchange("load key", cmd); err != nil {
		if errors.Is(err, ErrProtocolFailure) {
			s.reject()
		}
		return err
	}

	s.keyType = keyType
	s.authBlock = -1
	return s.fire(eventLoadKey)
}

// Authenticate authenticates the block at addr with the loaded key. A new
// authentication supersedes the previous one.
func (s *Session) Authenticate(addr mifare.Address) error {
	switch s.kind() {
	case Disconnected:
		return ErrNotConnected
	case Connected:
		return ErrKeyNotLoaded
	}
	cmd, err := s.builder.Authenticate(addr, s.keyType)
	if err != nil {
		return err
	}

	if _, err := s.exchange("authenticate", cmd); err != nil {
		if errors.Is(err, ErrProtocolFailure) {
			s.reject()
		}
		return err
	}

	// The block number sits at offset 2 of the GENERAL AUTHENTICATE data.
	s.authBlock = int(cmd.Data[2])
	return s.fire(eventAuthenticate)
}

// Login loads key and authenticates addr with it.
func (s *Session) Login(key []byte, keyType mifare.KeyType, addr mifare.Address) error {
	if err := s.LoadKey(key, keyType); err != nil {
		return err
	}
	return s.Authenticate(addr)
}

func (s *Session) reject() {
	if err := s.fire(eventReject); err != nil {
		s.log.WithError(err).Error("reject failed")
	}
}

// guard checks that cmd targets the authenticated block.
func (s *Session) guard(addr mifare.Address, cmd *iso7816.CommandAPDU) error {
	if s.kind() != Authenticated || s.authBlock != int(cmd.P2) {
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, addr)
	}
	return nil
}

// ReadBlock reads the block at addr, which must be the authenticated block.
func (s *Session) ReadBlock(addr mifare.Address) (mifare.BlockData, error) {
	if s.kind() == Disconnected {
		return mifare.BlockData{}, ErrNotConnected
	}
	cmd, err := s.builder.ReadBlock(addr)
	if err != nil {
		return mifare.BlockData{}, err
	}
	if err := s.guard(addr, cmd); err != nil {
		return mifare.BlockData{}, err
	}

	tx, err := s.exchange("read block", cmd)
	if err != nil {
		return mifare.BlockData{}, err
	}
	data, err := mifare.NewBlockData(tx.Response.Data)
	if err != nil {
		return mifare.BlockData{}, fmt.Errorf("read block: %w", err)
	}
	return data, nil
}

// WriteBlock writes data to the block at addr, which must be the
// authenticated block.
func (s *Session) WriteBlock(addr mifare.Address, data mifare.BlockData) error {
	if s.kind() == Disconnected {
		return ErrNotConnected
	}
	cmd, err := s.builder.WriteBlock(addr, data)
	if err != nil {
		return err
	}
	if err := s.guard(addr, cmd); err != nil {
		return err
	}

	_, err = s.exchange("write block", cmd)
	return err
}

// WriteBlockBytes is WriteBlock for raw bytes, which must be exactly 16.
func (s *Session) WriteBlockBytes(addr mifare.Address, raw []byte) error {
	data, err := mifare.NewBlockData(raw)
	if err != nil {
		return err
	}
	return s.WriteBlock(addr, data)
}

// Disconnect releases the channel. It always leaves the session
// Disconnected; the returned error only reports the channel release.
func (s *Session) Disconnect() error {
	err := s.channel.Disconnect()
	if ferr := s.fire(eventDisconnect); ferr != nil {
		s.log.WithError(ferr).Error("reset to disconnected failed")
	}
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}
