package compaction

import (
	"fmt"
	"testing"

	"github.com/lanterndb/lanterndb/internal/cache"
	"github.com/lanterndb/lanterndb/internal/table"
	"github.com/lanterndb/lanterndb/internal/version"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

type fakeFileManager struct {
	fs       *vfs.MemFS
	nextID   uint64
	syncDirs int
}

func newFakeFileManager(startID uint64) *fakeFileManager {
	return &fakeFileManager{fs: vfs.NewMemFS(), nextID: startID}
}

func (f *fakeFileManager) CreateTable() (uint64, vfs.WritableFile, error) {
	f.nextID++
	id := f.nextID
	file, err := f.fs.Create(f.path(id))
	return id, file, err
}

func (f *fakeFileManager) SyncDir() error {
	f.syncDirs++
	return nil
}

func (f *fakeFileManager) path(fileID uint64) string {
	return fmt.Sprintf("%06d.st", fileID)
}

func (f *fakeFileManager) OpenTable(fileID uint64) (*table.Reader, error) {
	rf, err := f.fs.OpenRandomAccess(f.path(fileID))
	if err != nil {
		return nil, err
	}
	return table.Open(rf, fileID, cache.NewLRUCache(1<<20))
}

func (f *fakeFileManager) put(fileID uint64, entries []table.Entry) table.FileMetadata {
	w, err := f.fs.Create(f.path(fileID))
	if err != nil {
		panic(err)
	}
	meta, _, err := table.BuildFrom(table.NewSliceIterator(entries), w, fileID, table.DefaultBuildOptions())
	if err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return *meta
}

func e(key, value string) table.Entry {
	return table.Entry{Key: []byte(key), Value: []byte(value)}
}

func tombstone(key string) table.Entry {
	return table.Entry{Key: []byte(key), Value: nil}
}

func readAll(t *testing.T, fm *fakeFileManager, metas []table.FileMetadata) []table.Entry {
	t.Helper()
	var out []table.Entry
	for _, m := range metas {
		r, err := fm.OpenTable(m.FileID)
		if err != nil {
			t.Fatal(err)
		}
		it := r.Iterate()
		for {
			entry, ok := it.Next()
			if !ok {
				break
			}
			out = append(out, entry)
		}
		r.Close()
	}
	return out
}

func TestCompactIntoMergesAndSplicesOverlap(t *testing.T) {
	fm := newFakeFileManager(100)
	picked := fm.put(1, []table.Entry{e("b", "new-b"), e("d", "new-d")})

	o1 := fm.put(10, []table.Entry{e("a", "old-a"), e("b", "old-b")})
	o2 := fm.put(11, []table.Entry{e("c", "old-c"), e("d", "old-d")})
	untouched := fm.put(12, []table.Entry{e("z", "z")})

	v := version.New(fm)
	v.Levels[1].Files = []table.FileMetadata{o1, o2, untouched}

	result, err := CompactInto(v, 0, picked, false, 1<<30, fm)
	if err != nil {
		t.Fatal(err)
	}
	if result.Picked != 1 {
		t.Fatalf("Picked = %d, want 1", result.Picked)
	}
	if len(result.RemovedFromNext) != 2 || result.InsertPosition != 0 {
		t.Fatalf("RemovedFromNext=%+v InsertPosition=%d", result.RemovedFromNext, result.InsertPosition)
	}
	if len(result.AddedToNext) != 1 {
		t.Fatalf("AddedToNext = %+v, want 1 table", result.AddedToNext)
	}

	entries := readAll(t, fm, result.AddedToNext)
	want := map[string]string{"a": "old-a", "b": "new-b", "c": "old-c", "d": "new-d"}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v", entries)
	}
	for _, got := range entries {
		if string(got.Value) != want[string(got.Key)] {
			t.Fatalf("key %q = %q, want %q", got.Key, got.Value, want[string(got.Key)])
		}
	}
}

func TestCompactIntoDiscardsTombstonesAtDeepestLevel(t *testing.T) {
	fm := newFakeFileManager(200)
	picked := fm.put(1, []table.Entry{e("a", "live"), tombstone("b")})

	v := version.New(fm)
	result, err := CompactInto(v, 0, picked, true, 1<<30, fm)
	if err != nil {
		t.Fatal(err)
	}
	entries := readAll(t, fm, result.AddedToNext)
	if len(entries) != 1 || string(entries[0].Key) != "a" {
		t.Fatalf("entries = %+v, want only 'a'", entries)
	}
}

func TestCompactIntoPreservesTombstonesWhenNotDeepest(t *testing.T) {
	fm := newFakeFileManager(300)
	picked := fm.put(1, []table.Entry{tombstone("b")})

	v := version.New(fm)
	result, err := CompactInto(v, 0, picked, false, 1<<30, fm)
	if err != nil {
		t.Fatal(err)
	}
	entries := readAll(t, fm, result.AddedToNext)
	if len(entries) != 1 || entries[0].Value != nil {
		t.Fatalf("entries = %+v, want one tombstone", entries)
	}
}

func TestScheduleOneCompactsLevel0WhenOverLimit(t *testing.T) {
	fm := newFakeFileManager(0)
	f1 := fm.put(1, []table.Entry{e("a", "1")})
	f2 := fm.put(2, []table.Entry{e("b", "2")})
	f3 := fm.put(3, []table.Entry{e("c", "3")})

	v := version.New(fm)
	v.Levels[0].Files = []table.FileMetadata{f3, f2, f1} // newest-first

	lim := Limits{Level0FileLimit: 2, LevelSizeExpandFactor: 10, TargetTableSize: 4096}
	change, _, _, err := ScheduleOne(v, lim, fm)
	if err != nil {
		t.Fatal(err)
	}
	if change == nil {
		t.Fatal("expected a compaction, got nil")
	}
	if change.FromLevel != 0 || change.PickedTable != 1 {
		t.Fatalf("change = %+v, want FromLevel=0 PickedTable=1 (oldest)", change)
	}
}

func TestScheduleOneReturnsNilWhenNoLevelOverLimit(t *testing.T) {
	fm := newFakeFileManager(0)
	f1 := fm.put(1, []table.Entry{e("a", "1")})

	v := version.New(fm)
	v.Levels[0].Files = []table.FileMetadata{f1}

	lim := Limits{Level0FileLimit: 4, LevelSizeExpandFactor: 10, TargetTableSize: 4096}
	change, _, _, err := ScheduleOne(v, lim, fm)
	if err != nil {
		t.Fatal(err)
	}
	if change != nil {
		t.Fatalf("change = %+v, want nil", change)
	}
}
