// version_edit.go implements LevelChange: the unit of durable state
// change a Version is built from by replaying the manifest log.
package manifest

import (
	"errors"

	"github.com/lanterndb/lanterndb/internal/encoding"
	"github.com/lanterndb/lanterndb/internal/table"
)

// ErrMalformedChange is returned when a LevelChange's tag-encoded bytes
// cannot be parsed, or required fields are missing.
var ErrMalformedChange = errors.New("manifest: malformed level change")

// ChangeKind distinguishes the two level-change shapes this system needs.
type ChangeKind uint8

const (
	// MemtableFlush adds NewTable as the newest ST in level 0.
	MemtableFlush ChangeKind = 1

	// LevelCompact removes PickedTable from FromLevel; at FromLevel+1,
	// removes RemovedFromNext starting at InsertPosition and inserts
	// AddedToNext at that position.
	LevelCompact ChangeKind = 2
)

// LevelChange is one durable change to the set of Sorted Tables making up
// a Version, per SPEC_FULL §3.
type LevelChange struct {
	Kind ChangeKind

	// MemtableFlush
	NewTable table.FileMetadata

	// LevelCompact
	FromLevel       int
	PickedTable     uint64
	RemovedFromNext []table.FileMetadata
	AddedToNext     []table.FileMetadata
	InsertPosition  int
}

// Encode serializes change into the tag-value encoding described in
// SPEC_FULL §10.4.
func Encode(change *LevelChange) []byte {
	var dst []byte
	dst = appendVarintField(dst, tagKind, uint64(change.Kind))

	switch change.Kind {
	case MemtableFlush:
		dst = appendFileMeta(dst, change.NewTable)
	case LevelCompact:
		dst = appendVarintField(dst, tagFromLevel, uint64(change.FromLevel))
		dst = appendFixed64Field(dst, tagFileID, change.PickedTable)
		dst = appendVarintField(dst, tagInsertPosition, uint64(change.InsertPosition))
		for _, m := range change.RemovedFromNext {
			dst = appendField(dst, tagRemovedTable, encodeFileMeta(m))
		}
		for _, m := range change.AddedToNext {
			dst = appendField(dst, tagAddedTable, encodeFileMeta(m))
		}
	}

	dst = appendVarintField(dst, tagTerminate, 0)
	return dst
}

// Decode parses a LevelChange previously produced by Encode.
func Decode(src []byte) (*LevelChange, error) {
	change := &LevelChange{}
	var haveFileID, haveFirstKey, haveLastKey bool
	var fileID uint64
	var firstKey, lastKey []byte

	for len(src) > 0 {
		tag, value, n, ok := readField(src)
		if !ok {
			return nil, ErrMalformedChange
		}
		src = src[n:]

		switch tag {
		case tagTerminate:
			src = nil
		case tagKind:
			v, ok := varintFromField(value)
			if !ok {
				return nil, ErrMalformedChange
			}
			change.Kind = ChangeKind(v)
		case tagFileID:
			v, ok := fixed64FromField(value)
			if !ok {
				return nil, ErrMalformedChange
			}
			fileID, haveFileID = v, true
			change.PickedTable = v
		case tagFirstKey:
			firstKey, haveFirstKey = value, true
		case tagLastKey:
			lastKey, haveLastKey = value, true
		case tagFromLevel:
			v, ok := varintFromField(value)
			if !ok {
				return nil, ErrMalformedChange
			}
			change.FromLevel = int(v)
		case tagInsertPosition:
			v, ok := varintFromField(value)
			if !ok {
				return nil, ErrMalformedChange
			}
			change.InsertPosition = int(v)
		case tagRemovedTable:
			m, err := decodeFileMeta(value)
			if err != nil {
				return nil, err
			}
			change.RemovedFromNext = append(change.RemovedFromNext, m)
		case tagAddedTable:
			m, err := decodeFileMeta(value)
			if err != nil {
				return nil, err
			}
			change.AddedToNext = append(change.AddedToNext, m)
		default:
			// Unknown, forward-compatible field: already skipped by n.
		}
	}

	if change.Kind == MemtableFlush {
		if !haveFileID || !haveFirstKey || !haveLastKey {
			return nil, ErrMalformedChange
		}
		change.NewTable = table.FileMetadata{FileID: fileID, FirstKey: firstKey, LastKey: lastKey}
	}

	return change, nil
}

func appendFileMeta(dst []byte, m table.FileMetadata) []byte {
	dst = appendFixed64Field(dst, tagFileID, m.FileID)
	dst = appendField(dst, tagFirstKey, m.FirstKey)
	dst = appendField(dst, tagLastKey, m.LastKey)
	return dst
}

// encodeFileMeta encodes a FileMetadata as a self-contained value usable
// inside a repeated tagRemovedTable/tagAddedTable field.
func encodeFileMeta(m table.FileMetadata) []byte {
	var dst []byte
	dst = encoding.AppendFixed64(dst, m.FileID)
	dst = encoding.AppendLengthPrefixedSlice(dst, m.FirstKey)
	dst = encoding.AppendLengthPrefixedSlice(dst, m.LastKey)
	return dst
}

func decodeFileMeta(src []byte) (table.FileMetadata, error) {
	s := encoding.NewSlice(src)
	fileID, ok := s.GetFixed64()
	if !ok {
		return table.FileMetadata{}, ErrMalformedChange
	}
	firstKey, ok := s.GetLengthPrefixedSlice()
	if !ok {
		return table.FileMetadata{}, ErrMalformedChange
	}
	lastKey, ok := s.GetLengthPrefixedSlice()
	if !ok {
		return table.FileMetadata{}, ErrMalformedChange
	}
	return table.FileMetadata{FileID: fileID, FirstKey: firstKey, LastKey: lastKey}, nil
}
