// Package reader connects to contactless cards through the PC/SC daemon.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ebfe/scard"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger().WithField("pkg", "reader")

var (
	ErrNoReader = errors.New("no smart card reader found")
	ErrNoCard   = errors.New("no card connected")
)

// Selector picks a reader by name substring, or by index when Name is empty.
type Selector struct {
	Index int
	Name  string
}

// Select resolves sel against the reader names reported by PC/SC.
func Select(readers []string, sel Selector) (string, error) {
	if len(readers) == 0 {
		return "", ErrNoReader
	}
	if sel.Name != "" {
		for _, r := range readers {
			if strings.Contains(r, sel.Name) {
				return r, nil
			}
		}
		return "", fmt.Errorf("%w: no reader matching %q", ErrNoReader, sel.Name)
	}
	if sel.Index < 0 || sel.Index >= len(readers) {
		return "", fmt.Errorf("%w: index %d out of range (0..%d)", ErrNoReader, sel.Index, len(readers)-1)
	}
	return readers[sel.Index], nil
}

// ListReaders returns the names of the readers known to the PC/SC daemon.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish context: %w", err)
	}
	defer func() {
		if err := ctx.Release(); err != nil {
			log.WithError(err).Warn("failed to release context")
		}
	}()

	readers, err := ctx.ListReaders()
	if err != nil {
		if errors.Is(err, scard.ErrNoReadersAvailable) {
			return nil, nil
		}
		return nil, fmt.Errorf("list readers: %w", err)
	}
	return readers, nil
}

// Reader is one PC/SC reader and the card currently connected through it.
// It is the card channel of a session.Session.
type Reader struct {
	Name string

	ctx  *scard.Context
	card *scard.Card
}

// Open establishes a PC/SC context and selects a reader. No card connection
// is made until Connect.
func Open(sel Selector) (*Reader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err == nil {
		var name string
		if name, err = Select(readers, sel); err == nil {
			log.WithField("reader", name).Debug("reader selected")
			return &Reader{Name: name, ctx: ctx}, nil
		}
	}

	if relErr := ctx.Release(); relErr != nil {
		log.WithError(relErr).Warn("failed to release context during error handling")
	}
	if errors.Is(err, scard.ErrNoReadersAvailable) {
		return nil, ErrNoReader
	}
	return nil, err
}

// WaitForCard blocks until a card is in the field or ctx is done.
func (r *Reader) WaitForCard(ctx context.Context, poll time.Duration) error {
	states := []scard.ReaderState{{
		Reader:       r.Name,
		CurrentState: scard.StateUnaware,
	}}
	for {
		if err := r.ctx.GetStatusChange(states, poll); err != nil && !errors.Is(err, scard.ErrTimeout) {
			return fmt.Errorf("status change: %w", err)
		}
		if states[0].EventState&scard.StatePresent != 0 {
			return nil
		}
		states[0].CurrentState = states[0].EventState

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Connect connects to the card in the field in shared mode.
func (r *Reader) Connect() error {
	if r.card != nil {
		return nil
	}
	card, err := r.ctx.Connect(r.Name, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", r.Name, err)
	}
	r.card = card
	return nil
}

// Transmit sends one raw command to the connected card.
func (r *Reader) Transmit(cmd []byte) ([]byte, error) {
	if r.card == nil {
		return nil, ErrNoCard
	}
	return r.card.Transmit(cmd)
}

// ATR returns the answer to reset the reader reports for the card.
func (r *Reader) ATR() ([]byte, error) {
	if r.card == nil {
		return nil, ErrNoCard
	}
	status, err := r.card.Status()
	if err != nil {
		return nil, fmt.Errorf("card status: %w", err)
	}
	return status.Atr, nil
}

// Disconnect drops the card connection, leaving the card powered.
func (r *Reader) Disconnect() error {
	if r.card == nil {
		return nil
	}
	err := r.card.Disconnect(scard.LeaveCard)
	r.card = nil
	return err
}

// Close disconnects and releases the PC/SC context.
func (r *Reader) Close() error {
	derr := r.Disconnect()
	if r.ctx == nil {
		return derr
	}
	if err := r.ctx.Release(); err != nil {
		return fmt.Errorf("release context: %w", err)
	}
	r.ctx = nil
	return derr
}
