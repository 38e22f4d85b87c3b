package version

import (
	"bytes"
	"sort"

	"github.com/lanterndb/lanterndb/internal/table"
)

// FileOpener opens the Sorted Table file identified by fileID for
// reading. Implementations are expected to route reads through the
// shared block-meta cache and resolve fileID to a path via the file
// manager; this package only needs the resulting reader.
type FileOpener interface {
	OpenTable(fileID uint64) (*table.Reader, error)
}

// Level holds the Sorted Tables making up one level of the LSM tree.
//
// Level 0 files may have overlapping key ranges and are kept ordered
// newest-first (Files[0] is the most recently flushed or compacted-in
// table). Levels 1 and above are disjoint and sorted ascending by key
// range, so a level's Files slice is itself a sorted index.
type Level struct {
	Files []table.FileMetadata
}

func cloneFiles(files []table.FileMetadata) []table.FileMetadata {
	if files == nil {
		return nil
	}
	out := make([]table.FileMetadata, len(files))
	copy(out, files)
	return out
}

// GetInLevel0 looks up key across level 0's overlapping tables,
// newest-first, returning the first table that has an entry for key.
// found is true and value is nil when that entry is a tombstone.
func (l *Level) GetInLevel0(opener FileOpener, key []byte) (value []byte, found bool, err error) {
	for _, fm := range l.Files {
		r, err := opener.OpenTable(fm.FileID)
		if err != nil {
			return nil, false, err
		}
		value, found, err = r.Get(key)
		closeErr := r.Close()
		if err != nil {
			return nil, false, err
		}
		if closeErr != nil {
			return nil, false, closeErr
		}
		if found {
			return value, true, nil
		}
	}
	return nil, false, nil
}

// Get looks up key in a level whose files are sorted and disjoint
// (level 1 and above). found is true and value is nil when the
// matching entry is a tombstone.
func (l *Level) Get(opener FileOpener, key []byte) (value []byte, found bool, err error) {
	if len(l.Files) == 0 {
		return nil, false, nil
	}
	if bytes.Compare(key, l.Files[len(l.Files)-1].LastKey) > 0 {
		return nil, false, nil
	}
	i := sort.Search(len(l.Files), func(i int) bool {
		return bytes.Compare(l.Files[i].LastKey, key) >= 0
	})
	if i == len(l.Files) || bytes.Compare(key, l.Files[i].FirstKey) < 0 {
		return nil, false, nil
	}
	r, err := opener.OpenTable(l.Files[i].FileID)
	if err != nil {
		return nil, false, err
	}
	defer r.Close()
	return r.Get(key)
}

// Overlap returns the contiguous run of files in a sorted, disjoint
// level whose key ranges intersect [start, end]. When no file
// overlaps, found is false and insertPosition names where a new file
// covering that range would be spliced in: 0 if it sorts before every
// existing file, len(l.Files) if it sorts after all of them, or the
// index of the first file whose range begins after end.
func (l *Level) Overlap(start, end []byte) (overlap []table.FileMetadata, insertPosition int, found bool) {
	n := len(l.Files)
	lo := sort.Search(n, func(i int) bool {
		return bytes.Compare(l.Files[i].LastKey, start) >= 0
	})
	hi := sort.Search(n, func(i int) bool {
		return bytes.Compare(l.Files[i].FirstKey, end) > 0
	})
	if lo >= hi {
		return nil, lo, false
	}
	return cloneFiles(l.Files[lo:hi]), lo, true
}

// PickOldest returns the file with the smallest file id, since file
// ids are assigned monotonically and so double as age order.
func (l *Level) PickOldest() (table.FileMetadata, bool) {
	if len(l.Files) == 0 {
		return table.FileMetadata{}, false
	}
	oldest := l.Files[0]
	for _, f := range l.Files[1:] {
		if f.FileID < oldest.FileID {
			oldest = f
		}
	}
	return oldest, true
}

// FileCount returns the number of files in the level, which is what
// level 0's compaction trigger compares against level_0_file_limit.
func (l *Level) FileCount() int {
	return len(l.Files)
}
