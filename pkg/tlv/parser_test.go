package tlv

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/moov-io/bertlv"
)

type customType struct {
	Val string
}

func (c *customType) UnmarshalTLV(data []byte) error {
	c.Val = "custom:" + hex.EncodeToString(data)
	return nil
}

type nestedStruct struct {
	Version []byte `tlv:"82"`
}

type testStruct struct {
	AID     []byte       `tlv:"4F"`
	Label   string       `tlv:"50"`
	Details nestedStruct `tlv:"A5"`
	Custom  customType   `tlv:"9F02"`
	Other   []bertlv.TLV `tlv:",unknown"`
}

func TestUnmarshal(t *testing.T) {
	rawData := Hex(
		"4F 0C A0000003060300010000 0000", // PC/SC part 3 AID
		"50 03 414243",                    // Label "ABC"
		"A5 03 8201FF",                    // Nested template
		"9F02 01 AA",                      // Custom type
		"DF01 01 BB",                      // Unknown tag
	)

	var result testStruct
	if err := Unmarshal(rawData, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := hex.EncodeToString(result.AID); got != "a00000030603000100000000" {
		t.Errorf("Expected PC/SC AID, got %s", got)
	}
	if result.Label != "414243" {
		t.Errorf("Expected Label 414243, got %s", result.Label)
	}
	if hex.EncodeToString(result.Details.Version) != "ff" {
		t.Errorf("Expected nested Version ff, got %x", result.Details.Version)
	}
	if result.Custom.Val != "custom:aa" {
		t.Errorf("Expected custom:aa, got %s", result.Custom.Val)
	}
	if len(result.Other) != 1 || strings.ToUpper(result.Other[0].Tag) != "DF01" {
		t.Errorf("Unknown tag DF01 not captured correctly: %+v", result.Other)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("Non-pointer target", func(t *testing.T) {
		err := Unmarshal([]byte{0x4F, 0x00}, testStruct{})
		if err == nil || !strings.Contains(err.Error(), "pointer") {
			t.Errorf("Expected pointer error, got %v", err)
		}
	})

	t.Run("Truncated input", func(t *testing.T) {
		var result testStruct
		if err := Unmarshal([]byte{0x4F, 0x05, 0x01}, &result); err == nil {
			t.Error("Expected decode error for truncated value")
		}
	})
}
