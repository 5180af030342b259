package iso7816

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

// TRANSACTION:
// A Transaction is the atomic unit of communication: one C-APDU sent by the
// host and either the R-APDU the card returned or the fault that prevented it.
//
// TRACE:
// A Trace is a chronological sequence of Transactions. The Recorder keeps the
// trace of a whole card connection; it is append-only and entries are never
// modified once recorded, so a trace can be replayed for debugging.

// Transaction represents a completed (or faulted) Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Raw      []byte // encoded command as sent
	Response *ResponseAPDU
	Fault    error
	Time     time.Time
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// String renders the exchange the way an APDU log pane shows it:
//
//	>> FF CA 00 00 00
//	<< (90 00) 04 A1 B2 C3
func (t Transaction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ">> %s\n", tlv.Spaced(t.Raw))
	switch {
	case t.Fault != nil:
		fmt.Fprintf(&sb, "<< (fault) %v", t.Fault)
	case t.Response != nil:
		fmt.Fprintf(&sb, "<< (%s) %s", t.Response.Status, tlv.Spaced(t.Response.Data))
	default:
		sb.WriteString("<< (none)")
	}
	return strings.TrimRight(sb.String(), " ")
}

// Trace is a sequence of transactions (Command-Response pairs).
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the final transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Sink receives every transaction as soon as it is recorded.
type Sink interface {
	Record(Transaction)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Transaction)

func (f SinkFunc) Record(tx Transaction) { f(tx) }

// Recorder is the append-only log of a card connection.
// It is not safe for concurrent use; like the channel it observes, it belongs
// to a single control flow.
type Recorder struct {
	entries Trace
	sinks   []Sink
}

// NewRecorder creates a Recorder forwarding every entry to sinks.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks}
}

// AddSink registers an additional sink.
func (r *Recorder) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Record appends a copy of tx and forwards it to the sinks. It never fails.
func (r *Recorder) Record(tx Transaction) {
	r.entries = append(r.entries, tx.clone())
	for _, s := range r.sinks {
		s.Record(tx)
	}
}

// All returns a copy of the recorded trace, oldest first.
func (r *Recorder) All() Trace {
	out := make(Trace, len(r.entries))
	for i, tx := range r.entries {
		out[i] = tx.clone()
	}
	return out
}

// Len returns the number of recorded transactions.
func (r *Recorder) Len() int {
	return len(r.entries)
}

// Clear drops every recorded transaction.
func (r *Recorder) Clear() {
	r.entries = nil
}

// clone copies tx down to its byte slices, so entries held by a Recorder
// never share memory with callers.
func (tx Transaction) clone() Transaction {
	out := tx
	out.Raw = bytes.Clone(tx.Raw)
	if tx.Command != nil {
		cmd := *tx.Command
		cmd.Data = bytes.Clone(tx.Command.Data)
		out.Command = &cmd
	}
	if tx.Response != nil {
		resp := *tx.Response
		resp.Data = bytes.Clone(tx.Response.Data)
		out.Response = &resp
	}
	return out
}
