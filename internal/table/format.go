// Package table implements the Sorted Table (ST): an immutable on-disk
// file holding a sequence of blocks followed by a trailing block-metadata
// index. Construction consumes an ordered entry iterator and emits one or
// more STs bounded by a soft size limit; reading binary-searches the
// trailer to narrow a lookup to a single block before ever touching the
// block's own bytes.
package table

import (
	"errors"

	"github.com/lanterndb/lanterndb/internal/encoding"
)

// ErrBadTrailer is returned when an ST's fixed 16-byte trailer cannot be
// parsed, or points outside the file. Per spec, a malformed trailer is
// fatal for that table: the caller must discard the file.
var ErrBadTrailer = errors.New("table: malformed trailer")

// ErrBadMetadata is returned when the block-metadata array itself cannot
// be parsed, or its entry count disagrees with the trailer.
var ErrBadMetadata = errors.New("table: malformed block-metadata array")

// trailerSize is the fixed size of the footer written after the
// block-metadata array: metadata-count (u64 LE) followed by
// metadata-offset (u64 LE).
const trailerSize = 16

// Entry is one key/value pair read from or written to a table. Value ==
// nil means tombstone.
type Entry struct {
	Key   []byte
	Value []byte
}

// EntryIterator yields entries in strictly increasing key order. Peek
// returns the next entry without consuming it; Next consumes and returns
// it. Both report ok == false once the sequence is exhausted.
type EntryIterator interface {
	Peek() (Entry, bool)
	Next() (Entry, bool)
}

// FileMetadata identifies one ST and its key range, the shape a Level
// keeps for every table it holds.
type FileMetadata struct {
	FileID   uint64
	FirstKey []byte
	LastKey  []byte
}

// BlockMeta describes one data block's location and key range within an
// ST file.
type BlockMeta struct {
	FirstKey []byte
	LastKey  []byte
	Offset   uint64
	Size     uint64
	Count    uint64
}

// appendBlockMeta appends one block-metadata entry using the same u16
// length-prefix codec as block entries, followed by three u32 LE
// fields (offset, size, entry count), per the pinned on-disk layout.
func appendBlockMeta(dst []byte, m BlockMeta) []byte {
	dst = encoding.AppendFixed16(dst, uint16(len(m.FirstKey)))
	dst = append(dst, m.FirstKey...)
	dst = encoding.AppendFixed16(dst, uint16(len(m.LastKey)))
	dst = append(dst, m.LastKey...)
	dst = encoding.AppendFixed32(dst, uint32(m.Offset))
	dst = encoding.AppendFixed32(dst, uint32(m.Size))
	dst = encoding.AppendFixed32(dst, uint32(m.Count))
	return dst
}

func getLengthPrefixed16(s *encoding.Slice) ([]byte, bool) {
	n, ok := s.GetFixed16()
	if !ok {
		return nil, false
	}
	return s.GetBytes(int(n))
}

func decodeBlockMeta(s *encoding.Slice) (BlockMeta, bool) {
	firstKey, ok := getLengthPrefixed16(s)
	if !ok {
		return BlockMeta{}, false
	}
	lastKey, ok := getLengthPrefixed16(s)
	if !ok {
		return BlockMeta{}, false
	}
	offset, ok := s.GetFixed32()
	if !ok {
		return BlockMeta{}, false
	}
	size, ok := s.GetFixed32()
	if !ok {
		return BlockMeta{}, false
	}
	count, ok := s.GetFixed32()
	if !ok {
		return BlockMeta{}, false
	}
	return BlockMeta{
		FirstKey: firstKey,
		LastKey:  lastKey,
		Offset:   uint64(offset),
		Size:     uint64(size),
		Count:    uint64(count),
	}, true
}

// decodeBlockMetaArray decodes every BlockMeta packed back-to-back in src.
func decodeBlockMetaArray(src []byte) ([]BlockMeta, error) {
	s := encoding.NewSlice(src)
	var metas []BlockMeta
	for s.Remaining() > 0 {
		m, ok := decodeBlockMeta(s)
		if !ok {
			return nil, ErrBadMetadata
		}
		metas = append(metas, m)
	}
	return metas, nil
}

// sliceIterator adapts an already-materialized, sorted slice of entries
// (e.g. a memtable snapshot) to EntryIterator.
type sliceIterator struct {
	entries []Entry
	pos     int
}

// NewSliceIterator returns an EntryIterator over entries, which must
// already be sorted by key ascending.
func NewSliceIterator(entries []Entry) EntryIterator {
	return &sliceIterator{entries: entries}
}

func (it *sliceIterator) Peek() (Entry, bool) {
	if it.pos >= len(it.entries) {
		return Entry{}, false
	}
	return it.entries[it.pos], true
}

func (it *sliceIterator) Next() (Entry, bool) {
	e, ok := it.Peek()
	if !ok {
		return Entry{}, false
	}
	it.pos++
	return e, true
}
