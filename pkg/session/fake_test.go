package session

import (
	"bytes"
	"errors"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
	"github.com/gregLibert/mifare-tools/pkg/mifare"
	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

var errCardRemoved = errors.New("card removed")

// fakeCard emulates a reader holding a Mifare Classic 1K card in transport
// configuration.
type fakeCard struct {
	uid []byte
	atr []byte
	mem [64]mifare.BlockData

	connected   bool
	loaded      []byte
	authBlock   int
	sent        [][]byte
	disconnects int

	connectErr error
	atrErr     error
	failAt     int                        // 1-based transmission that fails with errCardRemoved
	reply      map[iso7816.InsCode][]byte // canned raw responses
}

func newFakeCard() *fakeCard {
	c := &fakeCard{
		uid:       tlv.Hex("04A1B2C3"),
		atr:       tlv.Hex("3B8F8001804F0CA000000306030001000000006A"),
		authBlock: -1,
		reply:     map[iso7816.InsCode][]byte{},
	}
	copy(c.mem[0][:], tlv.Hex("04A1B2C3 D4 0804 00 62636465666768 69"))
	transport := tlv.Hex("FFFFFFFFFFFF FF078069 FFFFFFFFFFFF")
	for t := 3; t < 64; t += 4 {
		copy(c.mem[t][:], transport)
	}
	return c
}

func (c *fakeCard) Connect() error {
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeCard) ATR() ([]byte, error) {
	if c.atrErr != nil {
		return nil, c.atrErr
	}
	return c.atr, nil
}

func (c *fakeCard) Disconnect() error {
	c.disconnects++
	c.connected = false
	c.loaded = nil
	c.authBlock = -1
	return nil
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	c.sent = append(c.sent, append([]byte(nil), cmd...))
	if !c.connected {
		return nil, errors.New("no card connection")
	}
	if c.failAt == len(c.sent) {
		c.connected = false
		return nil, errCardRemoved
	}

	ins := iso7816.InsCode(cmd[1])
	if raw, ok := c.reply[ins]; ok {
		return append([]byte(nil), raw...), nil
	}

	switch ins {
	case iso7816.INS_GET_DATA:
		return append(append([]byte(nil), c.uid...), 0x90, 0x00), nil

	case iso7816.INS_LOAD_KEYS:
		if len(cmd) != 11 {
			return iso7816.SW_ERR_WRONG_LENGTH.Bytes(), nil
		}
		c.loaded = append([]byte(nil), cmd[5:11]...)
		c.authBlock = -1
		return iso7816.SW_NO_ERROR.Bytes(), nil

	case iso7816.INS_GENERAL_AUTHENTICATE:
		block, keyType := int(cmd[7]), mifare.KeyType(cmd[8])
		trailer := c.mem[block|3]
		want := trailer[0:6]
		if keyType == mifare.KeyB {
			want = trailer[10:16]
		}
		if c.loaded == nil || !bytes.Equal(c.loaded, want) {
			c.authBlock = -1
			return iso7816.SW_OPERATION_FAILED.Bytes(), nil
		}
		c.authBlock = block
		return iso7816.SW_NO_ERROR.Bytes(), nil

	case iso7816.INS_READ_BINARY:
		block := int(cmd[3])
		if block != c.authBlock {
			return iso7816.SW_ERR_SECURITY_STATUS_NOT_SAT.Bytes(), nil
		}
		data := c.mem[block]
		if block%4 == 3 {
			// Key A never reads back.
			copy(data[0:6], make([]byte, 6))
		}
		return append(data[:], 0x90, 0x00), nil

	case iso7816.INS_UPDATE_BINARY:
		block := int(cmd[3])
		if block != c.authBlock {
			return iso7816.SW_ERR_SECURITY_STATUS_NOT_SAT.Bytes(), nil
		}
		if len(cmd) != 21 {
			return iso7816.SW_ERR_WRONG_LENGTH.Bytes(), nil
		}
		copy(c.mem[block][:], cmd[5:21])
		return iso7816.SW_NO_ERROR.Bytes(), nil
	}
	return iso7816.SW_ERR_INS_INVALID.Bytes(), nil
}
