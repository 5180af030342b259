package session

import (
	"github.com/sirupsen/logrus"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

// LogSink is an iso7816.Sink writing every exchange to a logger. Frames go
// to debug level; the outcome level follows the status word category.
type LogSink struct {
	Log logrus.FieldLogger
}

// NewLogSink returns a sink logging to log.
func NewLogSink(log logrus.FieldLogger) *LogSink {
	return &LogSink{Log: log}
}

// Record logs the frame sent, the reply and one status line at a level
// matching the status category.
func (l *LogSink) Record(tx iso7816.Transaction) {
	entry := l.Log
	if tx.Command != nil {
		entry = entry.WithField("ins", tx.Command.Instruction.Raw.String())
	}
	entry.Debugf(">> %s", tlv.Spaced(tx.Raw))

	if tx.Fault != nil {
		entry.WithError(tx.Fault).Warn("<< (fault)")
		return
	}
	if tx.Response == nil {
		entry.Warn("<< (none)")
		return
	}

	sw := tx.Response.Status
	entry.Debugf("<< (%s) %s", sw, tlv.Spaced(tx.Response.Data))
	entry = entry.WithField("sw", sw.String())
	switch sw.Category() {
	case iso7816.CategorySuccess:
		entry.Info("exchange ok")
	case iso7816.CategoryWarning:
		entry.Warn(sw.Verbose())
	default:
		entry.Error(sw.Verbose())
	}
}
