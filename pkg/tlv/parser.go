// Package tlv maps BER-TLV encoded data (as found in the historical bytes of
// a PC/SC ATR) onto Go structures using `tlv` struct tags, and provides the
// hex helpers shared by the rest of the module.
package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal decodes raw BER-TLV data and maps it into target, which must be
// a non-nil pointer to a struct.
//
// Field tags name the hex tag to match (`tlv:"4F"`). A field tagged
// `tlv:",unknown"` of type []bertlv.TLV collects every object no other field
// consumed.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps already decoded objects into target.
// A slice field (other than []byte) receives one element per matching object.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to a struct")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make(map[int]bool)
	var unknown reflect.Value

	for i := 0; i < v.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("tlv")
		if !ok {
			continue
		}
		if tag == ",unknown" {
			unknown = v.Field(i)
			continue
		}

		want := strings.ToUpper(strings.Split(tag, ",")[0])
		for idx, packet := range packets {
			if strings.ToUpper(packet.Tag) != want {
				continue
			}
			if err := assign(packet, v.Field(i)); err != nil {
				return fmt.Errorf("tag %s: %w", want, err)
			}
			consumed[idx] = true
		}
	}

	if !unknown.IsValid() || !unknown.CanSet() {
		return nil
	}
	var leftovers []bertlv.TLV
	for idx, packet := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, packet)
		}
	}
	if len(leftovers) > 0 {
		unknown.Set(reflect.ValueOf(leftovers))
	}
	return nil
}

func assign(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeTo(packet, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return decodeTo(packet, field)
}

func decodeTo(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawValue(packet))
	case field.Kind() == reflect.String:
		field.SetString(strings.ToUpper(hex.EncodeToString(packet.Value)))
	case field.Kind() == reflect.Struct:
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, field.Addr().Interface())
		}
		return Unmarshal(packet.Value, field.Addr().Interface())
	}
	return nil
}

// rawValue re-encodes constructed objects so callers always get the payload bytes.
func rawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}
