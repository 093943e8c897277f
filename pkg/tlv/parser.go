// Package tlv maps BER-TLV (Basic Encoding Rules - Tag-Length-Value) data
// onto Go structures using struct tags, and renders decoded data for reports.
//
// A field tagged `tlv:"84"` receives the value of tag 84. A field of type
// []bertlv.TLV tagged `tlv:",unknown"` (or named Unknown) collects every tag
// no other field consumed.
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

// Unmarshal parses raw BER-TLV data and maps it into a target Go struct.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps pre-decoded packets to a target struct.
// Repeated tags are appended when the target field is a slice of structs.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must point to a struct, got %s", v.Kind())
	}
	t := v.Type()

	consumed := make(map[int]bool)

	for i := 0; i < v.NumField(); i++ {
		tag, ok := fieldTag(t.Field(i))
		if !ok {
			continue
		}

		for idx, packet := range packets {
			if !sameTag(packet.Tag, tag) {
				continue
			}
			if err := mapPacketToField(packet, v.Field(i)); err != nil {
				return fmt.Errorf("tag %s: %w", tag, err)
			}
			consumed[idx] = true
		}
	}

	return collectUnknown(v, t, packets, consumed)
}

// fieldTag returns the hex tag a struct field is bound to.
func fieldTag(f reflect.StructField) (string, bool) {
	cfg := f.Tag.Get("tlv")
	if cfg == "" || isUnknownField(f) {
		return "", false
	}
	return strings.ToUpper(strings.Split(cfg, ",")[0]), true
}

func isUnknownField(f reflect.StructField) bool {
	return f.Tag.Get("tlv") == ",unknown" || f.Name == "Unknown"
}

func mapPacketToField(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeToValue(packet, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}

	return decodeToValue(packet, field)
}

func decodeToValue(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(RawValue(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(RawValue(packet))
	case field.Kind() == reflect.String:
		field.SetString(hex.EncodeToString(packet.Value))
	case isStructOrPtrToStruct(field):
		target := addressable(field)
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, target.Interface())
		}
		return Unmarshal(packet.Value, target.Interface())
	}
	return nil
}

func collectUnknown(v reflect.Value, t reflect.Type, packets []bertlv.TLV, consumed map[int]bool) error {
	var field reflect.Value
	for i := 0; i < v.NumField(); i++ {
		if isUnknownField(t.Field(i)) {
			field = v.Field(i)
			break
		}
	}
	if !field.IsValid() || !field.CanSet() {
		return nil
	}

	var leftovers []bertlv.TLV
	for idx, packet := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, packet)
		}
	}
	if len(leftovers) > 0 {
		field.Set(reflect.ValueOf(leftovers))
	}
	return nil
}

// RawValue returns the value bytes of a packet, re-encoding children for
// constructed tags.
func RawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// Find returns the first packet in packets carrying tag (case insensitive hex).
func Find(packets []bertlv.TLV, tag string) (bertlv.TLV, bool) {
	for _, p := range packets {
		if sameTag(p.Tag, tag) {
			return p, true
		}
	}
	return bertlv.TLV{}, false
}

// FindPath walks nested templates, e.g. FindPath(packets, "6F", "A5", "BF0C").
func FindPath(packets []bertlv.TLV, path ...string) (bertlv.TLV, bool) {
	var cur bertlv.TLV
	level := packets
	for i, tag := range path {
		p, ok := Find(level, tag)
		if !ok {
			return bertlv.TLV{}, false
		}
		cur = p
		if i < len(path)-1 {
			level = p.TLVs
		}
	}
	return cur, len(path) > 0
}

// GetValue scans the top level of data for tag and returns its raw payload.
func GetValue(data []byte, tag uint) ([]byte, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, err
	}

	want := fmt.Sprintf("%X", tag)
	if p, ok := Find(packets, want); ok {
		return RawValue(p), nil
	}
	return nil, fmt.Errorf("tag %s not found", want)
}

func sameTag(a, b string) bool {
	return strings.EqualFold(a, b)
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func addressable(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
