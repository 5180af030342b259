package mifare

import (
	"fmt"
	"strings"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

// BlockReport describes a READ BINARY or UPDATE BINARY exchange in terms of
// the card layout.
type BlockReport struct {
	Geometry Geometry
	Tx       iso7816.Transaction
	Address  Address
	Absolute int
}

// NewBlockReport wraps tx, which must carry a block read or write command.
func NewBlockReport(g Geometry, tx iso7816.Transaction) (*BlockReport, error) {
	if tx.Command == nil {
		return nil, fmt.Errorf("cannot create report from a transaction without command")
	}
	ins := tx.Command.Instruction.Raw
	if ins != iso7816.INS_READ_BINARY && ins != iso7816.INS_UPDATE_BINARY {
		return nil, fmt.Errorf("transaction must carry READ BINARY or UPDATE BINARY (got %02X)", byte(ins))
	}

	abs := int(tx.Command.P1)<<8 | int(tx.Command.P2)
	addr, err := g.Locate(abs)
	if err != nil {
		return nil, err
	}
	return &BlockReport{Geometry: g, Tx: tx, Address: addr, Absolute: abs}, nil
}

// Payload returns the block content: the data read back, or the data written.
func (r *BlockReport) Payload() []byte {
	if r.Tx.Command.Instruction.Raw == iso7816.INS_UPDATE_BINARY {
		return r.Tx.Command.Data
	}
	if r.Tx.Response == nil {
		return nil
	}
	return r.Tx.Response.Data
}

// Describe generates a detailed, ASCII-formatted report of the operation.
func (r *BlockReport) Describe() string {
	var sb strings.Builder

	verb := "READ"
	if r.Tx.Command.Instruction.Raw == iso7816.INS_UPDATE_BINARY {
		verb = "WRITE"
	}
	fmt.Fprintf(&sb, "=== %s BLOCK REPORT ===\n", verb)
	fmt.Fprintf(&sb, "[1] Command: %s\n", r.Tx.Command.Instruction.Raw)

	target := fmt.Sprintf("Sector %d, Block %d (absolute %d)", r.Address.Sector(), r.Address.Block(), r.Absolute)
	if r.Geometry.IsTrailer(r.Absolute) {
		target += " [sector trailer]"
	}
	fmt.Fprintf(&sb, "    + Target:  %s\n", target)

	switch {
	case r.Tx.Fault != nil:
		fmt.Fprintf(&sb, "    + Result:  [-- --] [!!] %v\n", r.Tx.Fault)
	case r.Tx.Response != nil:
		sw := r.Tx.Response.Status
		mark := "[OK]"
		if !sw.IsSuccess() {
			mark = "[!!]"
		}
		fmt.Fprintf(&sb, "    + Result:  [%s] %s %s\n", sw, mark, sw.Verbose())
	}
	sb.WriteString("\n")

	payload := r.Payload()
	sb.WriteString("[=] DATA OUTCOME:\n")
	if len(payload) == 0 {
		sb.WriteString("    - No Data.\n")
		return strings.TrimRight(sb.String(), "\n")
	}

	fmt.Fprintf(&sb, "    + Length: %d bytes\n", len(payload))
	fmt.Fprintf(&sb, "    + Dump:   %s\n", tlv.Spaced(payload))
	fmt.Fprintf(&sb, "    + ASCII:  %q\n", tlv.MakeSafeASCII(payload))

	if r.Geometry.IsTrailer(r.Absolute) && len(payload) == BlockSize {
		var d BlockData
		copy(d[:], payload)
		trailer := SplitTrailer(d)
		fmt.Fprintf(&sb, "    + Access: %s GPB %02X\n", tlv.Spaced(trailer.Access[:]), trailer.GPB)
		if ac, err := trailer.Conditions(); err == nil {
			sb.WriteString("\n")
			sb.WriteString(ac.Describe())
		} else {
			fmt.Fprintf(&sb, "    - %v\n", err)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
