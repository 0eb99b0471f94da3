package protocol

import (
	"bytes"
	"fmt"
	"reflect"
)

const tagName = "mc"

// Packet is any fixed-layout classic packet. The opcode is the single
// leading byte on the wire; the body layout is given by mc struct tags.
type Packet interface {
	Opcode() byte
}

// Marshal encodes a packet into its full wire form: opcode byte followed
// by every tagged field in declaration order.
func Marshal(p Packet) ([]byte, error) {
	v := reflect.ValueOf(p)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("marshal: expected struct, got %s", v.Kind())
	}

	var buf bytes.Buffer
	buf.WriteByte(p.Opcode())

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		if err := WriteField(&buf, tag, v.Field(i).Interface()); err != nil {
			return nil, fmt.Errorf("marshal 0x%02X field %s: %w", p.Opcode(), field.Name, err)
		}
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes a packet body (everything after the opcode byte)
// into p using mc struct tags.
func Unmarshal(data []byte, p Packet) error {
	v := reflect.ValueOf(p)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("unmarshal: expected non-nil pointer, got %T", p)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal: expected pointer to struct, got pointer to %s", v.Kind())
	}

	r := bytes.NewReader(data)
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}

		val, err := ReadField(r, tag)
		if err != nil {
			return fmt.Errorf("unmarshal 0x%02X field %s: %w", p.Opcode(), field.Name, err)
		}

		fv := v.Field(i)
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("unmarshal field %s: cannot assign %s to %s", field.Name, rv.Type(), fv.Type())
		}
		fv.Set(rv)
	}

	return nil
}

// Size returns the total wire size of p including the opcode byte.
func Size(p Packet) (int, error) {
	v := reflect.ValueOf(p)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("size: expected struct, got %s", v.Kind())
	}

	total := 1 // opcode
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		n, err := FieldSize(tag)
		if err != nil {
			return 0, fmt.Errorf("size 0x%02X field %s: %w", p.Opcode(), t.Field(i).Name, err)
		}
		total += n
	}
	return total, nil
}
