package wal

import (
	"io"

	"github.com/lanterndb/lanterndb/internal/codec"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// Record is one decoded WAL entry. Value == nil means tombstone.
type Record struct {
	Key   []byte
	Value []byte
}

// Reader replays a WAL file sequentially.
type Reader struct {
	src  vfs.SequentialFile
	buf  []byte
	eof  bool
	fill [32 * 1024]byte
}

// NewReader returns a reader replaying src from its current position.
func NewReader(src vfs.SequentialFile) *Reader {
	return &Reader{src: src}
}

// ReadRecord returns the next entry, or io.EOF once the log is exhausted.
// A trailing partial record (a length-prefixed field claiming more bytes
// than remain) is treated as a clean end of log, not an error: it is the
// expected shape of a crash that interrupted an in-progress append.
func (r *Reader) ReadRecord() (*Record, error) {
	for {
		key, value, n, err := codec.DecodeEntry(r.buf)
		if err == nil {
			r.buf = r.buf[n:]
			return &Record{Key: key, Value: value}, nil
		}
		if r.eof {
			return nil, io.EOF
		}
		if err := r.refill(); err != nil {
			return nil, err
		}
	}
}

func (r *Reader) refill() error {
	n, err := r.src.Read(r.fill[:])
	if n > 0 {
		r.buf = append(r.buf, r.fill[:n]...)
	}
	if err != nil {
		if err == io.EOF {
			r.eof = true
			return nil
		}
		return err
	}
	return nil
}
