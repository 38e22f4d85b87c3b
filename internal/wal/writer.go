package wal

import (
	"bufio"

	"github.com/lanterndb/lanterndb/internal/codec"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// bufferSize is the size of the userspace write buffer between Append and
// the underlying file. FlushBuffer pushes whatever has accumulated here to
// the OS; DurableSync additionally fsyncs.
const bufferSize = 32 * 1024

// Writer appends entries to a WAL file.
//
// The append → flush_buffer → durable_sync ordering is the caller's
// responsibility: Append only stages bytes in the userspace buffer,
// FlushBuffer pushes them to the OS, and DurableSync additionally forces
// them to stable storage. A batch of appends may share one DurableSync.
type Writer struct {
	file   vfs.WritableFile
	buf    *bufio.Writer
	closed bool
}

// NewWriter returns a writer appending to file. The caller owns file and
// must Close it (via Close) when done.
func NewWriter(file vfs.WritableFile) *Writer {
	return &Writer{file: file, buf: bufio.NewWriterSize(file, bufferSize)}
}

// Append stages one entry in the write buffer. value == nil (or
// zero-length) records a tombstone.
func (w *Writer) Append(key, value []byte) error {
	if w.closed {
		return ErrClosed
	}
	entry, err := codec.AppendEntry(nil, key, value)
	if err != nil {
		return err
	}
	_, err = w.buf.Write(entry)
	return err
}

// FlushBuffer pushes any staged bytes to the OS without forcing durability.
func (w *Writer) FlushBuffer() error {
	return w.buf.Flush()
}

// DurableSync flushes the buffer and fsyncs the underlying file.
func (w *Writer) DurableSync() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the underlying file. Further Append calls fail.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
