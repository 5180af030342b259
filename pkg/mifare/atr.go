package mifare

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/mifare-tools/pkg/bits"
	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

// ATR OF CONTACTLESS STORAGE CARDS (PC/SC Part 3, section 3.1.3.2.3):
//
// Readers synthesise an ATR for cards that have none:
//
//	3B 8F 80 01 80 4F 0C A0 00 00 03 06 SS NN NN 00 00 00 00 TCK
//
// The historical bytes start with the category indicator 80 followed by an
// application identifier object (tag 4F) carrying the PC/SC RID
// A0 00 00 03 06, the standard byte SS and the card name NN NN.

// pcscRID is the registered application provider identifier of the PC/SC workgroup.
var pcscRID = []byte{0xA0, 0x00, 0x00, 0x03, 0x06}

const categoryIndicatorTLV = 0x80

// Standard byte values.
const (
	StandardISO14443APart3 byte = 0x03
	StandardFeliCa         byte = 0x11
)

// Card names registered in PC/SC Part 3 supplement.
const (
	CardMifareClassic1K   uint16 = 0x0001
	CardMifareClassic4K   uint16 = 0x0002
	CardMifareUltralight  uint16 = 0x0003
	CardMifareMini        uint16 = 0x0026
	CardMifareUltralightC uint16 = 0x003A
	CardMifarePlusSL12K   uint16 = 0x0036
	CardMifarePlusSL14K   uint16 = 0x0037
	CardTopazJewel        uint16 = 0xF004
	CardFeliCa212K        uint16 = 0xF011
	CardFeliCa424K        uint16 = 0xF012
)

var cardNames = map[uint16]string{
	CardMifareClassic1K:   "Mifare Classic 1K",
	CardMifareClassic4K:   "Mifare Classic 4K",
	CardMifareUltralight:  "Mifare Ultralight",
	CardMifareMini:        "Mifare Mini",
	CardMifareUltralightC: "Mifare Ultralight C",
	CardMifarePlusSL12K:   "Mifare Plus SL1 2K",
	CardMifarePlusSL14K:   "Mifare Plus SL1 4K",
	CardTopazJewel:        "Topaz/Jewel",
	CardFeliCa212K:        "FeliCa 212K",
	CardFeliCa424K:        "FeliCa 424K",
}

type historicalBytes struct {
	AID     []byte       `tlv:"4F"`
	Unknown []bertlv.TLV `tlv:",unknown"`
}

// CardInfo is what an ATR tells about the card in the field.
type CardInfo struct {
	ATR        []byte
	Historical []byte
	Protocols  []byte

	// Objects holds the historical byte objects other than the AID.
	Objects []bertlv.TLV

	// Set only for PC/SC storage card ATRs.
	IsStorageCard bool
	Standard      byte
	CardName      uint16
}

// ParseATR walks the interface bytes of atr and decodes its historical bytes.
// An ATR that is well formed but not a PC/SC storage card ATR is not an error.
func ParseATR(atr []byte) (*CardInfo, error) {
	if len(atr) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidATR, len(atr))
	}
	if atr[0] != 0x3B && atr[0] != 0x3F {
		return nil, fmt.Errorf("%w: bad TS 0x%02X", ErrInvalidATR, atr[0])
	}

	info := &CardInfo{ATR: append([]byte(nil), atr...)}

	t0 := atr[1]
	k := int(bits.LowNibble(t0))
	y := bits.HighNibble(t0)
	i := 2

	for {
		// Y bits b1..b4 flag the presence of TA, TB, TC and TD.
		for n := uint(1); n <= 3; n++ {
			if bits.IsSet(y, n) {
				i++
			}
		}
		if !bits.IsSet(y, 4) {
			break
		}
		if i >= len(atr) {
			return nil, fmt.Errorf("%w: truncated interface bytes", ErrInvalidATR)
		}
		td := atr[i]
		info.Protocols = append(info.Protocols, bits.LowNibble(td))
		y = bits.HighNibble(td)
		i++
	}

	if i+k > len(atr) {
		return nil, fmt.Errorf("%w: %d historical bytes announced, %d available", ErrInvalidATR, k, len(atr)-i)
	}
	info.Historical = atr[i : i+k]

	if k > 1 && info.Historical[0] == categoryIndicatorTLV {
		var hb historicalBytes
		if err := tlv.Unmarshal(info.Historical[1:], &hb); err != nil {
			return nil, fmt.Errorf("%w: historical bytes: %v", ErrInvalidATR, err)
		}
		info.Objects = hb.Unknown
		if len(hb.AID) >= 8 && bytes.Equal(hb.AID[:5], pcscRID) {
			info.IsStorageCard = true
			info.Standard = hb.AID[5]
			info.CardName = uint16(hb.AID[6])<<8 | uint16(hb.AID[7])
		}
	}

	return info, nil
}

// Name returns the card name, or a generic label.
func (c *CardInfo) Name() string {
	if !c.IsStorageCard {
		return "Unknown card"
	}
	if name, ok := cardNames[c.CardName]; ok {
		return name
	}
	return fmt.Sprintf("Storage card 0x%04X", c.CardName)
}

// Geometry returns the memory layout for Mifare Classic family cards.
func (c *CardInfo) Geometry() (Geometry, bool) {
	if !c.IsStorageCard {
		return Geometry{}, false
	}
	switch c.CardName {
	case CardMifareClassic1K:
		return Geometry1K, true
	case CardMifareClassic4K:
		return Geometry4K, true
	case CardMifareMini:
		return GeometryMini, true
	}
	return Geometry{}, false
}

// Describe generates a short report of the ATR.
func (c *CardInfo) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== ATR REPORT ===\n")
	fmt.Fprintf(&sb, "    + ATR:        %s\n", tlv.Spaced(c.ATR))
	fmt.Fprintf(&sb, "    + Historical: %s\n", tlv.FormatBytes(c.Historical, "ascii"))
	if c.IsStorageCard {
		fmt.Fprintf(&sb, "    + Standard:   %02X\n", c.Standard)
		fmt.Fprintf(&sb, "    + Card:       %04X -> %s\n", c.CardName, c.Name())
	} else {
		sb.WriteString("    - Not a PC/SC storage card ATR\n")
	}
	for _, obj := range c.Objects {
		fmt.Fprintf(&sb, "    + Tag %s:     %s\n", strings.ToUpper(obj.Tag), tlv.FormatBytes(obj.Value, ""))
	}
	return strings.TrimRight(sb.String(), "\n")
}
