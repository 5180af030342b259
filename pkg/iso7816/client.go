package iso7816

import (
	"fmt"
	"time"
)

// CLIENT:
// The Client is the only component performing I/O against the card. Each
// Send is exactly one exchange: there is no GET RESPONSE chaining and no
// automatic retry, policies that belong to the caller. Faults are surfaced
// immediately as *ChannelFault and the exchange is still recorded, so the
// trace shows what was sent even when nothing came back.

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client sends commands over a Transmitter and records every exchange.
type Client struct {
	Card     Transmitter
	Recorder *Recorder
	Now      func() time.Time
}

// NewClient creates a new Client instance. A nil recorder gets a fresh one.
func NewClient(card Transmitter, rec *Recorder) *Client {
	if rec == nil {
		rec = NewRecorder()
	}
	return &Client{Card: card, Recorder: rec, Now: time.Now}
}

// Send encodes and transmits cmd, returning the recorded transaction.
// Encoding errors happen before any I/O and are not recorded.
func (c *Client) Send(cmd *CommandAPDU) (Transaction, error) {
	rawCmd, err := cmd.Bytes()
	if err != nil {
		return Transaction{}, fmt.Errorf("encoding error: %w", err)
	}

	tx := Transaction{
		Command: cmd,
		Raw:     rawCmd,
		Time:    c.Now(),
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err == nil {
		tx.Response, err = ParseResponseAPDU(rawResp)
	}
	if err != nil {
		tx.Fault = &ChannelFault{Err: err}
		c.Recorder.Record(tx)
		return tx, tx.Fault
	}

	c.Recorder.Record(tx)
	return tx, nil
}
