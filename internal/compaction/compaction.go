// Package compaction implements the merge step that reorganizes
// Sorted Tables across levels: compacting one level-N-1 table against
// its overlapping level-N tables, and deciding when a level needs it.
package compaction

import (
	"github.com/lanterndb/lanterndb/internal/manifest"
	"github.com/lanterndb/lanterndb/internal/table"
	"github.com/lanterndb/lanterndb/internal/version"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// TableFileManager is the slice of the file manager (§4.8) a
// compaction job needs: fresh output files, and a way to make their
// directory entries durable once written.
type TableFileManager interface {
	CreateTable() (fileID uint64, file vfs.WritableFile, err error)
	SyncDir() error
}

// Result describes one compaction's effect on a Version: picked is
// dropped from FromLevel, RemovedFromNext is spliced out of
// FromLevel+1 at InsertPosition and replaced by AddedToNext.
type Result struct {
	FromLevel       int
	Picked          uint64
	RemovedFromNext []table.FileMetadata
	AddedToNext     []table.FileMetadata
	InsertPosition  int

	// TombstonesDropped counts entries discarded because
	// discardTombstones was set; it is not part of the durable
	// LevelChange, only of interest to callers reporting statistics.
	TombstonesDropped uint64

	// BytesWritten is the total size of the output tables, for
	// callers reporting statistics.
	BytesWritten int64
}

// LevelChange converts a Result into the durable record the manifest
// log and Version.Apply operate on.
func (r *Result) LevelChange() *manifest.LevelChange {
	return &manifest.LevelChange{
		Kind:            manifest.LevelCompact,
		FromLevel:       r.FromLevel,
		PickedTable:     r.Picked,
		RemovedFromNext: r.RemovedFromNext,
		AddedToNext:     r.AddedToNext,
		InsertPosition:  r.InsertPosition,
	}
}

// CompactInto merges picked (a table from fromLevel) against whatever
// tables in fromLevel+1 overlap its key range, per SPEC_FULL §4.4's
// compact_with algorithm, and writes the result as a sequence of
// fresh level-(fromLevel+1) tables sized to targetTableSize.
//
// discardTombstones drops tombstone entries from the output instead
// of carrying them forward; callers set it when fromLevel+1 is the
// deepest level with any data, since a tombstone compacted there can
// no longer shadow anything.
func CompactInto(v *version.Version, fromLevel int, picked table.FileMetadata, discardTombstones bool, targetTableSize int64, fm TableFileManager) (*Result, error) {
	next := &v.Levels[fromLevel+1]
	overlapTables, insertPosition, _ := next.Overlap(picked.FirstKey, picked.LastKey)

	// picked is listed first: it has higher write priority than the
	// overlap tables it is being merged against (§4.4).
	inputs := make([]table.FileMetadata, 0, 1+len(overlapTables))
	inputs = append(inputs, picked)
	inputs = append(inputs, overlapTables...)

	readers := make([]*table.Reader, 0, len(inputs))
	closeReaders := func() {
		for _, r := range readers {
			r.Close()
		}
	}
	sources := make([]table.EntryIterator, 0, len(inputs))
	for _, in := range inputs {
		r, err := v.Opener.OpenTable(in.FileID)
		if err != nil {
			closeReaders()
			return nil, err
		}
		readers = append(readers, r)
		sources = append(sources, r.Iterate())
	}
	defer closeReaders()

	merged := newPriorityMerge(sources, discardTombstones)

	var added []table.FileMetadata
	var bytesWritten int64
	// discardTombstones can filter picked down to nothing (a single
	// all-tombstone table compacted at the deepest level); check
	// before allocating an output file for a merge with no entries.
	for _, hasEntries := merged.Peek(); hasEntries; _, hasEntries = merged.Peek() {
		fileID, file, err := fm.CreateTable()
		if err != nil {
			return nil, err
		}
		meta, more, buildErr := table.BuildFrom(merged, file, fileID, table.BuildOptions{
			BlockSize:     table.DefaultBlockSize,
			SoftSizeLimit: targetTableSize,
		})
		if buildErr != nil {
			_ = file.Close()
			return nil, buildErr
		}
		if size, err := file.Size(); err == nil {
			bytesWritten += size
		}
		if err := file.Sync(); err != nil {
			_ = file.Close()
			return nil, err
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
		added = append(added, *meta)
		if !more {
			break
		}
	}

	if len(added) > 0 {
		if err := fm.SyncDir(); err != nil {
			return nil, err
		}
	}

	return &Result{
		FromLevel:         fromLevel,
		Picked:            picked.FileID,
		RemovedFromNext:   overlapTables,
		AddedToNext:       added,
		InsertPosition:    insertPosition,
		TombstonesDropped: merged.dropped,
		BytesWritten:      bytesWritten,
	}, nil
}
