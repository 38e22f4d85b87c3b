// Package codec implements the single low-level entry framing shared by
// data blocks and the write-ahead log: a length-prefixed key followed by
// a length-prefixed optional value, where a zero value-length denotes a
// tombstone rather than an empty value.
package codec

import (
	"errors"

	"github.com/lanterndb/lanterndb/internal/encoding"
)

// ErrTruncated is returned when a buffer ends mid-entry; callers reading a
// stream (WAL replay, block iteration) treat it as a clean end-of-data stop
// rather than a fatal corruption, since it is the expected shape of a
// crash that lands between two writes.
var ErrTruncated = errors.New("codec: truncated entry")

// MaxKeyLen bounds encodable keys to what fits in the u16 length field.
const MaxKeyLen = 1<<16 - 1

// MaxValueLen bounds encodable live values to what fits in the u16 length
// field. A live value is never zero-length: vallen == 0 on disk always
// means tombstone, so an empty Put is indistinguishable from a Delete.
const MaxValueLen = 1<<16 - 1

// AppendEntry appends one encoded entry to dst. value == nil (or
// zero-length) encodes a tombstone. Returns an error if key or value
// exceeds the u16 length field.
func AppendEntry(dst []byte, key, value []byte) ([]byte, error) {
	if len(key) > MaxKeyLen {
		return nil, errors.New("codec: key too long")
	}
	if len(value) > MaxValueLen {
		return nil, errors.New("codec: value too long")
	}
	dst = encoding.AppendFixed16(dst, uint16(len(key)))
	dst = append(dst, key...)
	dst = encoding.AppendFixed16(dst, uint16(len(value)))
	dst = append(dst, value...)
	return dst, nil
}

// DecodeEntry decodes one entry from the front of src. The returned key and
// value alias src. value == nil means tombstone. n is the number of bytes
// consumed.
func DecodeEntry(src []byte) (key, value []byte, n int, err error) {
	if len(src) < 2 {
		return nil, nil, 0, ErrTruncated
	}
	keyLen := int(encoding.DecodeFixed16(src))
	pos := 2
	if len(src) < pos+keyLen+2 {
		return nil, nil, 0, ErrTruncated
	}
	key = src[pos : pos+keyLen]
	pos += keyLen
	valLen := int(encoding.DecodeFixed16(src[pos:]))
	pos += 2
	if valLen == 0 {
		return key, nil, pos, nil
	}
	if len(src) < pos+valLen {
		return nil, nil, 0, ErrTruncated
	}
	value = src[pos : pos+valLen]
	pos += valLen
	return key, value, pos, nil
}
