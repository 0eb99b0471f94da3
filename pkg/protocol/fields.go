package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Wire field sizes of the classic protocol.
const (
	StringLength = 64   // fixed string field, right-padded with 0x20
	ChunkLength  = 1024 // level data chunk payload
)

// WriteField encodes a single tagged field. All multi-byte integers are
// big-endian. Strings are truncated to 64 bytes and space-padded on the
// right; truncation is byte-wise, clients tolerate a split codepoint.
func WriteField(w io.Writer, tag string, val any) error {
	switch tag {
	case "u8":
		return binary.Write(w, binary.BigEndian, val.(uint8))
	case "i8":
		return binary.Write(w, binary.BigEndian, val.(int8))
	case "i16":
		return binary.Write(w, binary.BigEndian, val.(int16))
	case "str64":
		var field [StringLength]byte
		for i := range field {
			field[i] = ' '
		}
		copy(field[:], val.(string))
		_, err := w.Write(field[:])
		return err
	case "chunk":
		arr := val.([ChunkLength]byte)
		_, err := w.Write(arr[:])
		return err
	default:
		return fmt.Errorf("unknown field tag: %q", tag)
	}
}

// ReadField decodes a single tagged field. Trailing padding of str64
// fields is trimmed here; the raw 64 bytes never survive decoding.
func ReadField(r io.Reader, tag string) (any, error) {
	switch tag {
	case "u8":
		var v uint8
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case "i8":
		var v int8
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case "i16":
		var v int16
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case "str64":
		var field [StringLength]byte
		if _, err := io.ReadFull(r, field[:]); err != nil {
			return "", err
		}
		return strings.TrimRight(string(field[:]), " \x00"), nil
	case "chunk":
		var arr [ChunkLength]byte
		if _, err := io.ReadFull(r, arr[:]); err != nil {
			return arr, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unknown field tag: %q", tag)
	}
}

// FieldSize returns the wire size in bytes of a tagged field.
func FieldSize(tag string) (int, error) {
	switch tag {
	case "u8", "i8":
		return 1, nil
	case "i16":
		return 2, nil
	case "str64":
		return StringLength, nil
	case "chunk":
		return ChunkLength, nil
	default:
		return 0, fmt.Errorf("unknown field tag: %q", tag)
	}
}
