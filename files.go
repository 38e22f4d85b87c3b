package lanterndb

// files.go implements the file manager and file reclaimer (SPEC_FULL
// §4.8): the file manager hands out monotonically increasing file ids
// and opens their backing files; the reclaimer tracks, per file id, how
// many live Versions reference it, and deletes a file once nothing
// does.
//
// Grounded on the teacher's flush.go sstFilePath/sstFileName pair
// (numeric filenames under the database directory) and on
// internal/compaction's test fakeFileManager, generalized into
// production types shared by the write coordinator, compactor, and
// facade.

import (
	"strconv"
	"sync"

	"github.com/lanterndb/lanterndb/internal/cache"
	"github.com/lanterndb/lanterndb/internal/table"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// fileManager allocates file ids, maps them to paths under dir, and
// opens data files either for writing (a fresh table) or for reading
// (an existing one, through the shared block-meta cache).
type fileManager struct {
	fs  vfs.FS
	dir string

	mu     sync.Mutex
	nextID uint64

	cache cache.Cache
}

func newFileManager(fs vfs.FS, dir string, startID uint64, cacheBytes uint64) *fileManager {
	return &fileManager{fs: fs, dir: dir, nextID: startID, cache: cache.NewLRUCache(cacheBytes)}
}

func (fm *fileManager) path(fileID uint64) string {
	return fm.dir + "/" + strconv.FormatUint(fileID, 10)
}

// allocateFileID returns a fresh, never-before-used file id.
func (fm *fileManager) allocateFileID() uint64 {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.nextID++
	return fm.nextID
}

// bumpNextID ensures subsequent allocations stay above the highest file
// id recovered from the manifest on Open.
func (fm *fileManager) bumpNextID(seen uint64) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if seen > fm.nextID {
		fm.nextID = seen
	}
}

// CreateTable allocates a fresh file id and opens its backing file for
// writing. Implements both flush.TableFileManager and
// compaction.TableFileManager.
func (fm *fileManager) CreateTable() (uint64, vfs.WritableFile, error) {
	id := fm.allocateFileID()
	f, err := fm.fs.Create(fm.path(id))
	if err != nil {
		return 0, nil, err
	}
	return id, f, nil
}

// SyncDir durably persists the directory entries created by CreateTable.
func (fm *fileManager) SyncDir() error {
	return fm.fs.SyncDir(fm.dir)
}

// OpenTable opens the table identified by fileID for reading. Implements
// version.FileOpener.
func (fm *fileManager) OpenTable(fileID uint64) (*table.Reader, error) {
	f, err := fm.fs.OpenRandomAccess(fm.path(fileID))
	if err != nil {
		return nil, err
	}
	r, err := table.Open(f, fileID, fm.cache)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// remove deletes the backing file for fileID and evicts its
// block-metadata entry. Called only by the reclaimer once a file's
// reference count reaches zero.
func (fm *fileManager) remove(fileID uint64) error {
	fm.cache.Erase(cache.CacheKey(fileID))
	return fm.fs.Remove(fm.path(fileID))
}

// close releases the file manager's cache.
func (fm *fileManager) close() {
	fm.cache.Close()
}

// reclaimer owns the reference count of every on-disk table file, as
// its own long-lived goroutine consuming two event streams (SPEC_FULL
// §4.8): a newly installed Version's full active file set increments
// every id in it, and a just-retired Version's file set decrements
// every id in it. When a count reaches zero, the file is no longer
// reachable from any Version a reader could be holding, and reclaimer
// deletes it.
//
// Decoupling file lifetime from Version lifetime this way means a
// table carried forward unchanged across several compactions (because
// it never overlapped anything) is never needlessly rewritten, and
// isn't deleted out from under whichever Version still cites it.
//
// refs is touched only by run, on the reclaimer's own goroutine, so it
// needs no lock of its own.
type reclaimer struct {
	fm     *fileManager
	events chan reclaimEvent
	done   chan struct{}
	refs   map[uint64]int
}

// reclaimEvent carries one batch of increments, one batch of
// decrements, or both: retain always applies before release within the
// same event, matching the order compactor.go's publishChange emits
// them in for one Version transition.
type reclaimEvent struct {
	retain  []uint64
	release []uint64
}

func newReclaimer(fm *fileManager) *reclaimer {
	rc := &reclaimer{
		fm:     fm,
		events: make(chan reclaimEvent, 16),
		done:   make(chan struct{}),
		refs:   make(map[uint64]int),
	}
	go rc.run()
	return rc
}

func (rc *reclaimer) run() {
	defer close(rc.done)
	for ev := range rc.events {
		for _, id := range ev.retain {
			rc.refs[id]++
		}
		for _, id := range ev.release {
			rc.refs[id]--
			if rc.refs[id] <= 0 {
				delete(rc.refs, id)
				_ = rc.fm.remove(id)
			}
		}
	}
}

// retain increments the reference count of every file in ids, the full
// active set of a newly installed Version.
func (rc *reclaimer) retain(ids []uint64) {
	rc.events <- reclaimEvent{retain: ids}
}

// release decrements the reference count of every file in ids, the full
// active set of a Version that has just been superseded. Any file whose
// count reaches zero is deleted.
func (rc *reclaimer) release(ids []uint64) {
	rc.events <- reclaimEvent{release: ids}
}

// close stops the reclaimer's goroutine once every already-queued event
// has been processed, and waits for it to exit.
func (rc *reclaimer) close() {
	close(rc.events)
	<-rc.done
}
