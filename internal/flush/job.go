// Package flush implements the flush operation that writes an immutable
// memory table out to a fresh level-0 Sorted Table.
package flush

import (
	"errors"

	"github.com/lanterndb/lanterndb/internal/manifest"
	"github.com/lanterndb/lanterndb/internal/memtable"
	"github.com/lanterndb/lanterndb/internal/table"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// ErrEmptyMemtable is returned when Run is asked to flush a memtable
// with no entries.
var ErrEmptyMemtable = errors.New("flush: memtable has no entries")

// TableFileManager is the slice of the file manager (§4.8) a flush job
// needs: a fresh file to write a Sorted Table into, and a way to make
// its directory entry durable once written.
type TableFileManager interface {
	CreateTable() (fileID uint64, file vfs.WritableFile, err error)
	SyncDir() error
}

// Run flushes mt's entries into a single fresh level-0 Sorted Table,
// using a soft size limit of 0 (unlimited) so the whole memtable lands
// in one file, and returns the LevelChange recording the new table
// plus the table's on-disk size.
func Run(mt *memtable.MemTable, fm TableFileManager) (change *manifest.LevelChange, bytesWritten int64, err error) {
	if mt.Empty() {
		return nil, 0, ErrEmptyMemtable
	}

	snapshot := mt.Iter()
	entries := make([]table.Entry, len(snapshot))
	for i, e := range snapshot {
		entries[i] = table.Entry{Key: e.Key, Value: e.Value}
	}

	fileID, file, err := fm.CreateTable()
	if err != nil {
		return nil, 0, err
	}

	meta, _, err := table.BuildFrom(table.NewSliceIterator(entries), file, fileID, table.DefaultBuildOptions())
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	size, _ := file.Size()
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	if err := file.Close(); err != nil {
		return nil, 0, err
	}
	// Sync the directory entry before the manifest can reference this
	// file: otherwise a crash could leave the manifest pointing at a
	// table that never made it to disk.
	if err := fm.SyncDir(); err != nil {
		return nil, 0, err
	}

	return &manifest.LevelChange{Kind: manifest.MemtableFlush, NewTable: *meta}, size, nil
}
