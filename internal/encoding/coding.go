// Package encoding provides the small set of binary encoding primitives
// shared by the manifest tag codec and the key/value framing used by
// blocks and the write-ahead log.
//
// Multi-byte integers are little-endian. Variable-length integers use
// 7-bit encoding with MSB continuation, used only where a field's size
// is not fixed by the on-disk format (manifest tag payloads).
package encoding

import (
	"encoding/binary"
	"errors"
)

const MaxVarint64Length = 10

var (
	ErrBufferTooSmall   = errors.New("encoding: buffer too small")
	ErrVarintOverflow   = errors.New("encoding: varint overflow")
	ErrVarintTruncated  = errors.New("encoding: varint not terminated")
)

func EncodeFixed16(dst []byte, value uint16) { binary.LittleEndian.PutUint16(dst, value) }
func DecodeFixed16(src []byte) uint16        { return binary.LittleEndian.Uint16(src) }

func EncodeFixed32(dst []byte, value uint32) { binary.LittleEndian.PutUint32(dst, value) }
func DecodeFixed32(src []byte) uint32        { return binary.LittleEndian.Uint32(src) }

func EncodeFixed64(dst []byte, value uint64) { binary.LittleEndian.PutUint64(dst, value) }
func DecodeFixed64(src []byte) uint64        { return binary.LittleEndian.Uint64(src) }

func AppendFixed16(dst []byte, value uint16) []byte { return binary.LittleEndian.AppendUint16(dst, value) }
func AppendFixed32(dst []byte, value uint32) []byte { return binary.LittleEndian.AppendUint32(dst, value) }
func AppendFixed64(dst []byte, value uint64) []byte { return binary.LittleEndian.AppendUint64(dst, value) }

// EncodeVarint64 encodes value as a varint into dst, returning the bytes written.
// REQUIRES: dst has at least MaxVarint64Length bytes.
func EncodeVarint64(dst []byte, value uint64) int {
	const B = 128
	i := 0
	for value >= B {
		dst[i] = byte(value&(B-1)) | B
		value >>= 7
		i++
	}
	dst[i] = byte(value)
	return i + 1
}

func AppendVarint64(dst []byte, value uint64) []byte {
	var buf [MaxVarint64Length]byte
	n := EncodeVarint64(buf[:], value)
	return append(dst, buf[:n]...)
}

// DecodeVarint64 decodes a varint64 from src, returning the value and bytes consumed.
func DecodeVarint64(src []byte) (value uint64, bytesRead int, err error) {
	var result uint64
	for shift := uint(0); shift < 64; shift += 7 {
		if bytesRead >= len(src) {
			return 0, 0, ErrVarintTruncated
		}
		b := src[bytesRead]
		bytesRead++
		if b < 128 {
			result |= uint64(b) << shift
			return result, bytesRead, nil
		}
		result |= uint64(b&0x7f) << shift
	}
	return 0, 0, ErrVarintOverflow
}

// AppendLengthPrefixedSlice appends value to dst as [varint64 length][bytes].
func AppendLengthPrefixedSlice(dst []byte, value []byte) []byte {
	dst = AppendVarint64(dst, uint64(len(value)))
	return append(dst, value...)
}

// DecodeLengthPrefixedSlice decodes a [varint64 length][bytes] field from src.
// The returned slice aliases src.
func DecodeLengthPrefixedSlice(src []byte) (value []byte, bytesRead int, err error) {
	length, n, err := DecodeVarint64(src)
	if err != nil {
		return nil, 0, err
	}
	bytesRead = n
	if bytesRead+int(length) > len(src) {
		return nil, 0, ErrBufferTooSmall
	}
	value = src[bytesRead : bytesRead+int(length)]
	bytesRead += int(length)
	return value, bytesRead, nil
}

// Slice is a cursor over a byte buffer used while decoding manifest records.
type Slice struct {
	data []byte
	pos  int
}

func NewSlice(data []byte) *Slice { return &Slice{data: data} }

func (s *Slice) Remaining() int { return len(s.data) - s.pos }
func (s *Slice) Data() []byte   { return s.data[s.pos:] }

func (s *Slice) GetFixed16() (uint16, bool) {
	if s.Remaining() < 2 {
		return 0, false
	}
	v := DecodeFixed16(s.data[s.pos:])
	s.pos += 2
	return v, true
}

// GetBytes returns the next n bytes, aliasing the underlying buffer.
func (s *Slice) GetBytes(n int) ([]byte, bool) {
	if s.Remaining() < n {
		return nil, false
	}
	v := s.data[s.pos : s.pos+n]
	s.pos += n
	return v, true
}

func (s *Slice) GetFixed32() (uint32, bool) {
	if s.Remaining() < 4 {
		return 0, false
	}
	v := DecodeFixed32(s.data[s.pos:])
	s.pos += 4
	return v, true
}

func (s *Slice) GetFixed64() (uint64, bool) {
	if s.Remaining() < 8 {
		return 0, false
	}
	v := DecodeFixed64(s.data[s.pos:])
	s.pos += 8
	return v, true
}

func (s *Slice) GetVarint64() (uint64, bool) {
	v, n, err := DecodeVarint64(s.data[s.pos:])
	if err != nil {
		return 0, false
	}
	s.pos += n
	return v, true
}

func (s *Slice) GetLengthPrefixedSlice() ([]byte, bool) {
	v, n, err := DecodeLengthPrefixedSlice(s.data[s.pos:])
	if err != nil {
		return nil, false
	}
	s.pos += n
	return v, true
}

func (s *Slice) GetByte() (byte, bool) {
	if s.Remaining() < 1 {
		return 0, false
	}
	b := s.data[s.pos]
	s.pos++
	return b, true
}
