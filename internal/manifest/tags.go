// Package manifest implements the durable record of on-disk state changes:
// a small tag-value encoding for LevelChange records, wrapped in an
// integrity checksum and an optional compression codec, framed as
// [length u64 LE][payload] in the manifest log file.
package manifest

import "github.com/lanterndb/lanterndb/internal/encoding"

// fieldTag identifies one field within an encoded LevelChange. Each field
// is written as [tag varint][length varint][bytes], so a reader that
// doesn't recognize a tag can still skip over it — the same
// forward-compatible shape as the teacher's RocksDB-derived VersionEdit
// tags, pared down to exactly what LevelChange needs.
type fieldTag uint32

const (
	tagTerminate      fieldTag = 0
	tagKind           fieldTag = 1
	tagFileID         fieldTag = 2
	tagFirstKey       fieldTag = 3
	tagLastKey        fieldTag = 4
	tagFromLevel      fieldTag = 5
	tagInsertPosition fieldTag = 6
	tagRemovedTable   fieldTag = 7 // repeated
	tagAddedTable     fieldTag = 8 // repeated
)

func appendField(dst []byte, tag fieldTag, value []byte) []byte {
	dst = encoding.AppendVarint64(dst, uint64(tag))
	dst = encoding.AppendLengthPrefixedSlice(dst, value)
	return dst
}

func appendVarintField(dst []byte, tag fieldTag, value uint64) []byte {
	var buf [encoding.MaxVarint64Length]byte
	n := encoding.EncodeVarint64(buf[:], value)
	return appendField(dst, tag, buf[:n])
}

func appendFixed64Field(dst []byte, tag fieldTag, value uint64) []byte {
	var buf [8]byte
	encoding.EncodeFixed64(buf[:], value)
	return appendField(dst, tag, buf[:])
}

// readField reads one [tag][length-prefixed value] pair from the front of
// src. ok is false once src is exhausted or malformed.
func readField(src []byte) (tag fieldTag, value []byte, n int, ok bool) {
	s := encoding.NewSlice(src)
	tv, got := s.GetVarint64()
	if !got {
		return 0, nil, 0, false
	}
	value, got = s.GetLengthPrefixedSlice()
	if !got {
		return 0, nil, 0, false
	}
	return fieldTag(tv), value, len(src) - s.Remaining(), true
}

func varintFromField(value []byte) (uint64, bool) {
	v, n, err := encoding.DecodeVarint64(value)
	if err != nil || n != len(value) {
		return 0, false
	}
	return v, true
}

func fixed64FromField(value []byte) (uint64, bool) {
	if len(value) != 8 {
		return 0, false
	}
	return encoding.DecodeFixed64(value), true
}
