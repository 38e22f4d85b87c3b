package lanterndb

// config.go implements database configuration options.

import (
	"time"

	"github.com/lanterndb/lanterndb/internal/codec"
	"github.com/lanterndb/lanterndb/internal/compression"
	"github.com/lanterndb/lanterndb/internal/logging"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// Logger is an alias for the logging.Logger interface, letting callers
// pass their own implementation without importing internal/logging.
type Logger = logging.Logger

// ManifestCompression is an alias for the manifest-payload codec type.
type ManifestCompression = compression.Type

// Manifest compression codec constants.
const (
	ManifestCompressionNone   = compression.NoCompression
	ManifestCompressionSnappy = compression.SnappyCompression
	ManifestCompressionLZ4    = compression.LZ4Compression
	ManifestCompressionZstd   = compression.ZstdCompression
)

// Config holds everything needed to Open a database.
type Config struct {
	// TargetTableSize bounds the size of a single Sorted Table that
	// compaction produces into a level. Flush is not bounded by it: each
	// flush writes the whole memtable into one level-0 table.
	// Default: 2MB.
	TargetTableSize int64

	// Level0FileLimit is the level-0 table count above which level 0 is
	// compacted into level 1. Default: 4.
	Level0FileLimit int

	// LevelSizeExpandFactor is the per-level growth factor feeding the
	// level L >= 1 compaction trigger: (expand_factor^L) * MiB /
	// TargetTableSize table-count limit. Default: 10.
	LevelSizeExpandFactor int

	// ManifestFileName is the manifest log's filename within the
	// database directory. Default: "meta".
	ManifestFileName string

	// WALFileName is the write-ahead log's filename within the database
	// directory. Default: "memtable_log".
	WALFileName string

	// BlockMetaCacheBytes bounds the shared block-metadata cache shared
	// by every open Sorted Table reader. Default: 8MB.
	BlockMetaCacheBytes uint64

	// MemtableSizeLimit is the approximate byte size at which the
	// active memory table is rotated into the immutable slot and
	// flushed. Default: 4MB.
	MemtableSizeLimit int64

	// Level0SlowdownTrigger is the level-0 table count at or above
	// which the write coordinator injects a small per-request sleep to
	// apply backpressure. Default: 8.
	Level0SlowdownTrigger int

	// WriteBatchBytes bounds how many bytes of pending requests the
	// write coordinator accumulates before ending a batch. Default:
	// 64KB.
	WriteBatchBytes int

	// WriteBatchWait bounds how long the write coordinator waits for a
	// batch to fill before ending it anyway. Default: 5ms.
	WriteBatchWait time.Duration

	// SyncWrite durably fsyncs the WAL at the end of every batch,
	// instead of only flushing to the OS. Default: false.
	SyncWrite bool

	// ManifestCompression compresses each manifest record's payload.
	// Default: ManifestCompressionNone.
	ManifestCompression ManifestCompression

	// Logger receives operational log messages. Default: a discard
	// logger.
	Logger Logger

	// Stats, if non-nil, is the counter set this DB updates instead of
	// allocating its own. Default: a fresh Stats.
	Stats *Stats

	// MaxValueBytes bounds the size of a single value; Put rejects
	// anything larger at the facade, before any write. Keys have a
	// fixed 1024-byte bound (MaxKeyBytes) that this Config does not
	// override. Default and upper bound: 65535 bytes, the largest value
	// the u16 length prefix of the on-disk entry codec can hold; a larger
	// setting is lowered to it.
	MaxValueBytes int64

	// FS is the filesystem implementation to use. Default: the OS
	// filesystem. Tests substitute an in-memory vfs.FS.
	FS vfs.FS
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		TargetTableSize:       2 * 1024 * 1024,
		Level0FileLimit:       4,
		LevelSizeExpandFactor: 10,
		ManifestFileName:      "meta",
		WALFileName:           "memtable_log",
		BlockMetaCacheBytes:   8 * 1024 * 1024,
		MemtableSizeLimit:     4 * 1024 * 1024,
		Level0SlowdownTrigger: 8,
		WriteBatchBytes:       64 * 1024,
		WriteBatchWait:        5 * time.Millisecond,
		SyncWrite:             false,
		ManifestCompression:   ManifestCompressionNone,
		MaxValueBytes:         int64(codec.MaxValueLen),
	}
}

// withDefaults fills in zero-valued fields that must never actually be
// zero at runtime, and resolves the Logger/Stats/FS injection points.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetTableSize <= 0 {
		c.TargetTableSize = d.TargetTableSize
	}
	if c.Level0FileLimit <= 0 {
		c.Level0FileLimit = d.Level0FileLimit
	}
	if c.LevelSizeExpandFactor <= 0 {
		c.LevelSizeExpandFactor = d.LevelSizeExpandFactor
	}
	if c.ManifestFileName == "" {
		c.ManifestFileName = d.ManifestFileName
	}
	if c.WALFileName == "" {
		c.WALFileName = d.WALFileName
	}
	if c.BlockMetaCacheBytes == 0 {
		c.BlockMetaCacheBytes = d.BlockMetaCacheBytes
	}
	if c.MemtableSizeLimit <= 0 {
		c.MemtableSizeLimit = d.MemtableSizeLimit
	}
	if c.Level0SlowdownTrigger <= 0 {
		c.Level0SlowdownTrigger = d.Level0SlowdownTrigger
	}
	if c.WriteBatchBytes <= 0 {
		c.WriteBatchBytes = d.WriteBatchBytes
	}
	if c.WriteBatchWait <= 0 {
		c.WriteBatchWait = d.WriteBatchWait
	}
	if c.MaxValueBytes <= 0 || c.MaxValueBytes > d.MaxValueBytes {
		c.MaxValueBytes = d.MaxValueBytes
	}
	if logging.IsNil(c.Logger) {
		c.Logger = logging.Discard
	}
	if c.Stats == nil {
		c.Stats = NewStats()
	}
	if c.FS == nil {
		c.FS = vfs.Default()
	}
	return c
}
