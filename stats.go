package lanterndb

// stats.go implements the database's runtime counters.
//
// Grounded on the teacher's statisticsImpl: plain atomic counters behind
// a small typed accessor surface, pared down from RocksDB's 40-ticker,
// histogram-bearing Statistics to the handful SPEC_FULL calls for.

import "sync/atomic"

// Stats holds atomic counters updated by the write coordinator and
// compactor, and read by (*DB).Stats.
type Stats struct {
	flushCount        atomic.Uint64
	compactionCount   atomic.Uint64
	bytesWritten      atomic.Uint64
	bytesCompacted    atomic.Uint64
	keysRead          atomic.Uint64
	tombstonesDropped atomic.Uint64
}

// NewStats returns a fresh, zeroed Stats.
func NewStats() *Stats { return &Stats{} }

// Snapshot is a point-in-time copy of a Stats' counters.
type Snapshot struct {
	FlushCount        uint64
	CompactionCount   uint64
	BytesWritten      uint64
	BytesCompacted    uint64
	KeysRead          uint64
	TombstonesDropped uint64
}

// Snapshot returns the current value of every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		FlushCount:        s.flushCount.Load(),
		CompactionCount:   s.compactionCount.Load(),
		BytesWritten:      s.bytesWritten.Load(),
		BytesCompacted:    s.bytesCompacted.Load(),
		KeysRead:          s.keysRead.Load(),
		TombstonesDropped: s.tombstonesDropped.Load(),
	}
}

func (s *Stats) recordFlush()                     { s.flushCount.Add(1) }
func (s *Stats) recordCompaction()                { s.compactionCount.Add(1) }
func (s *Stats) addBytesWritten(n int64)           { s.bytesWritten.Add(uint64(n)) }
func (s *Stats) addBytesCompacted(n int64)         { s.bytesCompacted.Add(uint64(n)) }
func (s *Stats) recordKeyRead()                    { s.keysRead.Add(1) }
func (s *Stats) addTombstonesDropped(n uint64)     { s.tombstonesDropped.Add(n) }
