package block

import "github.com/lanterndb/lanterndb/internal/codec"

// Builder accumulates entries, in strictly increasing key order, into one
// block's byte representation.
type Builder struct {
	buffer   []byte
	lastKey  []byte
	finished bool
}

// NewBuilder returns an empty block builder.
func NewBuilder() *Builder {
	return &Builder{buffer: make([]byte, 0, 4096)}
}

// Add appends one entry.
// REQUIRES: Finish has not been called since the last Reset.
// REQUIRES: key is strictly greater than any previously added key.
func (b *Builder) Add(key, value []byte) error {
	if b.finished {
		panic("block: Add called after Finish")
	}
	buf, err := codec.AppendEntry(b.buffer, key, value)
	if err != nil {
		return err
	}
	b.buffer = buf
	b.lastKey = append(b.lastKey[:0], key...)
	return nil
}

// EstimatedSize returns the current encoded size in bytes.
func (b *Builder) EstimatedSize() int { return len(b.buffer) }

// Empty reports whether any entries have been added.
func (b *Builder) Empty() bool { return len(b.buffer) == 0 }

// LastKey returns the most recently added key.
func (b *Builder) LastKey() []byte { return b.lastKey }

// Finish returns the block's encoded bytes. The returned slice is valid
// until Reset is called.
func (b *Builder) Finish() []byte {
	b.finished = true
	return b.buffer
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buffer = b.buffer[:0]
	b.lastKey = b.lastKey[:0]
	b.finished = false
}
