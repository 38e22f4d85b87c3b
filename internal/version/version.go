// Package version tracks the set of Sorted Tables making up the
// on-disk state of the LSM tree at a point in time.
//
// A Version is a snapshot: which ST files exist at each level, and
// how their key ranges are arranged. Versions are value-immutable.
// Applying a manifest.LevelChange never mutates the receiver; it
// returns a new Version that shares the unaffected levels' file
// slices with the old one. There is no reference counting and no
// linked list: callers that need to keep an old Version alive while a
// newer one is installed simply keep holding the *Version value they
// already have, and the Go garbage collector reclaims one once its
// last holder lets go.
package version

import (
	"github.com/lanterndb/lanterndb/internal/manifest"
	"github.com/lanterndb/lanterndb/internal/table"
)

// MaxLevels bounds the number of levels the LSM tree can grow to.
const MaxLevels = 7

// Version is an immutable snapshot of the database's on-disk file
// layout: which Sorted Tables exist, and at which level.
type Version struct {
	Levels [MaxLevels]Level
	Opener FileOpener
}

// New returns an empty Version with no files at any level.
func New(opener FileOpener) *Version {
	return &Version{Opener: opener}
}

// Get looks up key, first in level 0 (newest-first, so the first hit
// wins) and then down through levels 1..N (each disjoint and sorted).
// found is false when no level holds an entry for key, or when the
// entry found is a tombstone.
func (v *Version) Get(key []byte) (value []byte, found bool, err error) {
	value, found, err = v.Levels[0].GetInLevel0(v.Opener, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return value, value != nil, nil
	}
	for i := 1; i < len(v.Levels); i++ {
		value, found, err = v.Levels[i].Get(v.Opener, key)
		if err != nil {
			return nil, false, err
		}
		if found {
			return value, value != nil, nil
		}
	}
	return nil, false, nil
}

// Depth returns the index of the deepest non-empty level, plus one,
// or 0 if every level is empty. This feeds the discard-tombstones
// decision during compaction: a tombstone compacted into the deepest
// populated level can never shadow an older value below it, so it can
// be dropped outright instead of carried forward.
func (v *Version) Depth() int {
	for i := len(v.Levels) - 1; i >= 0; i-- {
		if len(v.Levels[i].Files) > 0 {
			return i + 1
		}
	}
	return 0
}

// AllFileIDs returns the file id of every Sorted Table referenced by
// this Version, across every level, with no duplicates. The file
// reclaimer diffs this set against its live reference counts to learn
// which files a newly installed Version stopped pinning.
func (v *Version) AllFileIDs() []uint64 {
	var ids []uint64
	seen := make(map[uint64]struct{})
	for _, lvl := range v.Levels {
		for _, f := range lvl.Files {
			if _, ok := seen[f.FileID]; ok {
				continue
			}
			seen[f.FileID] = struct{}{}
			ids = append(ids, f.FileID)
		}
	}
	return ids
}

// clone returns a shallow copy of v whose per-level file slices are
// independently owned, so mutating the copy's slices (append, re-slice)
// can never be observed through v.
func (v *Version) clone() *Version {
	next := &Version{Opener: v.Opener}
	for i := range v.Levels {
		next.Levels[i].Files = cloneFiles(v.Levels[i].Files)
	}
	return next
}

// Apply returns a new Version reflecting change. v itself is left
// untouched.
func (v *Version) Apply(change *manifest.LevelChange) *Version {
	next := v.clone()
	switch change.Kind {
	case manifest.MemtableFlush:
		next.Levels[0].Files = append([]table.FileMetadata{change.NewTable}, next.Levels[0].Files...)
	case manifest.LevelCompact:
		from := change.FromLevel
		next.Levels[from].Files = removeByFileID(next.Levels[from].Files, change.PickedTable)
		to := from + 1
		next.Levels[to].Files = splice(next.Levels[to].Files, change.RemovedFromNext, change.AddedToNext, change.InsertPosition)
	}
	return next
}

func removeByFileID(files []table.FileMetadata, fileID uint64) []table.FileMetadata {
	out := make([]table.FileMetadata, 0, len(files))
	for _, f := range files {
		if f.FileID != fileID {
			out = append(out, f)
		}
	}
	return out
}

// splice removes len(removed) files starting at pos and inserts added
// in their place. Callers derive pos and the length of removed from
// the same Level.Overlap call that selected added's key range, so the
// removed count always matches what's actually present at pos.
func splice(files []table.FileMetadata, removed, added []table.FileMetadata, pos int) []table.FileMetadata {
	out := make([]table.FileMetadata, 0, len(files)-len(removed)+len(added))
	out = append(out, files[:pos]...)
	out = append(out, added...)
	out = append(out, files[pos+len(removed):]...)
	return out
}
