// Package block implements the data block: a packed, sorted sequence of
// entries written as [keylen u16][key][vallen u16][value], with a
// zero-length value meaning tombstone. Lookup and iteration both operate
// by a single linear scan, which is cache-friendly at the block's target
// size (a few KiB) and is narrowed to one block by the sorted table's
// block-metadata index before it ever runs.
package block

import (
	"bytes"
	"errors"

	"github.com/lanterndb/lanterndb/internal/codec"
)

// ErrBadBlock is returned when a block's bytes cannot be parsed.
var ErrBadBlock = errors.New("block: malformed block data")

// Block is a read-only view over one block's raw bytes.
type Block struct {
	data []byte
}

// NewBlock wraps raw block bytes for lookup and iteration. The slice is not
// copied; the caller must keep it valid for the Block's lifetime.
func NewBlock(data []byte) *Block {
	return &Block{data: data}
}

// Entry is a decoded key/value pair. Value == nil means tombstone.
type Entry struct {
	Key   []byte
	Value []byte
}

// Get performs a linear scan for key, returning (value, true) for a live
// entry, (nil, true) for a tombstone, or (nil, false) if key is absent.
func (b *Block) Get(key []byte) (value []byte, found bool) {
	it := b.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		cmp := bytes.Compare(it.Key(), key)
		if cmp == 0 {
			return it.Value(), true
		}
		if cmp > 0 {
			return nil, false
		}
	}
	return nil, false
}

// Iterator walks the entries of a Block in key order.
type Iterator struct {
	data    []byte
	pos     int // offset of the current entry
	nextPos int // offset just past the current entry
	key     []byte
	value   []byte
	valid   bool
	err     error
}

// NewIterator returns an iterator positioned before the first entry.
func (b *Block) NewIterator() *Iterator {
	return &Iterator{data: b.data}
}

func (it *Iterator) Valid() bool   { return it.valid && it.err == nil }
func (it *Iterator) Key() []byte   { return it.key }
func (it *Iterator) Value() []byte { return it.value }
func (it *Iterator) Error() error  { return it.err }

// SeekToFirst positions the iterator at the first entry, if any.
func (it *Iterator) SeekToFirst() {
	it.pos = 0
	it.nextPos = 0
	it.valid = false
	it.Next()
}

// SeekToLast positions the iterator at the last entry, if any.
func (it *Iterator) SeekToLast() {
	it.SeekToFirst()
	if !it.Valid() {
		return
	}
	for {
		lastPos, lastNext := it.pos, it.nextPos
		lastKey, lastValue := it.key, it.value
		it.Next()
		if !it.Valid() {
			it.pos, it.nextPos = lastPos, lastNext
			it.key, it.value = lastKey, lastValue
			it.valid = true
			return
		}
	}
}

// Next advances to the next entry.
func (it *Iterator) Next() {
	if it.err != nil {
		it.valid = false
		return
	}
	if it.nextPos >= len(it.data) {
		it.valid = false
		return
	}
	key, value, n, err := codec.DecodeEntry(it.data[it.nextPos:])
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	it.pos = it.nextPos
	it.key = key
	it.value = value
	it.nextPos += n
	it.valid = true
}

// Prev moves to the entry before the current one, if any.
// REQUIRES: Valid()
func (it *Iterator) Prev() {
	if it.err != nil {
		it.valid = false
		return
	}
	target := it.pos
	it.pos, it.nextPos = 0, 0
	it.valid = false

	var prevKey, prevValue []byte
	var prevPos, prevNext int
	found := false
	for {
		it.Next()
		if !it.Valid() || it.pos >= target {
			break
		}
		prevKey, prevValue = it.key, it.value
		prevPos, prevNext = it.pos, it.nextPos
		found = true
	}
	if !found {
		it.valid = false
		return
	}
	it.key, it.value = prevKey, prevValue
	it.pos, it.nextPos = prevPos, prevNext
	it.valid = true
}

// Seek positions the iterator at the first entry with key >= target.
func (it *Iterator) Seek(target []byte) {
	for it.SeekToFirst(); it.Valid(); it.Next() {
		if bytes.Compare(it.Key(), target) >= 0 {
			return
		}
	}
}
