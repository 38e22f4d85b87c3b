// Package wal implements the write-ahead log: a single append-only file
// holding the concatenation of every (key, value-or-tombstone) pair applied
// to the current memory table, replayed to rebuild that table on restart.
//
// A record is exactly one codec-framed entry; there is no block framing, no
// per-record checksum, and no record splitting. The entry framing itself (a
// u16 length prefix on both key and value) is what lets replay detect a
// partial record left by a crash mid-append: a length prefix claiming more
// bytes than remain in the file reads as end-of-log, not corruption.
package wal

import "errors"

// ErrClosed is returned by Append calls made after the writer is closed.
var ErrClosed = errors.New("wal: writer is closed")
