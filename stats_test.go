package lanterndb

import "testing"

func TestStatsSnapshotStartsZero(t *testing.T) {
	s := NewStats()
	got := s.Snapshot()
	want := Snapshot{}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want zero value", got)
	}
}

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.recordFlush()
	s.recordFlush()
	s.recordCompaction()
	s.addBytesWritten(100)
	s.addBytesCompacted(50)
	s.recordKeyRead()
	s.addTombstonesDropped(3)

	got := s.Snapshot()
	want := Snapshot{
		FlushCount:        2,
		CompactionCount:   1,
		BytesWritten:      100,
		BytesCompacted:    50,
		KeysRead:          1,
		TombstonesDropped: 3,
	}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
}
