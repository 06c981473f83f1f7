// Package rlp implements just enough of the RLP encoding scheme to give
// transaction and outpoint structs a deterministic byte encoding for
// hashing. Only encoding is implemented: nothing in this module ever
// needs to decode a transaction back out of its wire bytes.
package rlp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
)

// ErrUnsupportedType is returned when EncodeToBytes is asked to encode a
// value of a kind this encoder does not handle.
var ErrUnsupportedType = errors.New("rlp: unsupported type for encoding")

// EncodeToBytes returns the RLP encoding of val. val must be built out
// of uint8/16/32/64, []byte, string, fixed-size byte arrays, slices, and
// structs (exported fields only, encoded in field order).
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, reflect.ValueOf(val)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v reflect.Value) error {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			buf.WriteByte(0x80)
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(buf, v.Uint())

	case reflect.String:
		return writeWithHeader(buf, stringHeader, []byte(v.String()))

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return writeWithHeader(buf, stringHeader, v.Bytes())
		}
		return encodeSequence(buf, v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return writeWithHeader(buf, stringHeader, byteArrayBytes(v))
		}
		return encodeSequence(buf, v)

	case reflect.Struct:
		return encodeSequence(buf, v)

	case reflect.Invalid:
		buf.WriteByte(0x80)
		return nil

	default:
		return ErrUnsupportedType
	}
}

func encodeUint(buf *bytes.Buffer, u uint64) error {
	switch {
	case u == 0:
		buf.WriteByte(0x80)
		return nil
	case u < 0x80:
		buf.WriteByte(byte(u))
		return nil
	default:
		return writeWithHeader(buf, stringHeader, minimalBigEndian(u))
	}
}

// encodeSequence handles the two aggregate shapes this module ever
// hashes: a slice/array of sub-values, or a struct's exported fields in
// declaration order. Both concatenate their encoded members into one
// payload and wrap it behind a list header.
func encodeSequence(buf *bytes.Buffer, v reflect.Value) error {
	var inner bytes.Buffer
	if v.Kind() == reflect.Struct {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := encode(&inner, v.Field(i)); err != nil {
				return err
			}
		}
	} else {
		for i := 0; i < v.Len(); i++ {
			if err := encode(&inner, v.Index(i)); err != nil {
				return err
			}
		}
	}
	return writeWithHeader(buf, listHeader, inner.Bytes())
}

// header names the pair of base bytes RLP uses for a length-prefixed
// item: shortBase for payloads of 55 bytes or fewer (added directly to
// the length), longBase for longer payloads (added to the count of
// length bytes that follow). Strings and lists share this same
// length-prefix shape and differ only in these two bytes.
type header struct {
	shortBase byte
	longBase  byte
}

var (
	stringHeader = header{shortBase: 0x80, longBase: 0xb7}
	listHeader   = header{shortBase: 0xc0, longBase: 0xf7}
)

// writeWithHeader writes data to buf prefixed by h's length header, with
// the single-byte-string special case: a lone byte under 0x80 is its own
// encoding and needs no header at all.
func writeWithHeader(buf *bytes.Buffer, h header, data []byte) error {
	if h == stringHeader && len(data) == 1 && data[0] < 0x80 {
		buf.WriteByte(data[0])
		return nil
	}
	n := len(data)
	if n <= 55 {
		buf.WriteByte(h.shortBase + byte(n))
	} else {
		lenBytes := minimalBigEndian(uint64(n))
		buf.WriteByte(h.longBase + byte(len(lenBytes)))
		buf.Write(lenBytes)
	}
	buf.Write(data)
	return nil
}

func byteArrayBytes(v reflect.Value) []byte {
	b := make([]byte, v.Len())
	for i := range b {
		b[i] = byte(v.Index(i).Uint())
	}
	return b
}

// minimalBigEndian returns u as big-endian bytes with no leading zero
// byte, the form RLP requires for both uint payloads and length prefixes.
func minimalBigEndian(u uint64) []byte {
	if u == 0 {
		return nil
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], u)
	i := 0
	for tmp[i] == 0 {
		i++
	}
	return tmp[i:]
}
