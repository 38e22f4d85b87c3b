// db.go ties together the write coordinator, compactor, file manager,
// and reclaimer into the public facade: Open, Get, Put, Delete, Close.
//
// Grounded on the teacher's options.go/flush.go for the mutex +
// condition-variable shape of the running database, generalized to a
// fresh on-disk layout since the teacher's own db.go (referenced
// throughout its dbImpl-based API surface) is not part of this package;
// this file is written in that surrounding style rather than adapted
// from an existing one.
package lanterndb

import (
	"errors"
	"io"
	"sync"

	"github.com/lanterndb/lanterndb/internal/manifest"
	"github.com/lanterndb/lanterndb/internal/memtable"
	"github.com/lanterndb/lanterndb/internal/version"
	"github.com/lanterndb/lanterndb/internal/vfs"
	"github.com/lanterndb/lanterndb/internal/wal"
)

// ErrClosed is returned by Get/Put/Delete once the database has been
// closed.
var ErrClosed = errors.New("lanterndb: database is closed")

// MaxKeyBytes is the largest key Put/Delete accepts.
const MaxKeyBytes = 1024

// ErrKeyTooLarge is returned by Put/Delete when key exceeds MaxKeyBytes.
var ErrKeyTooLarge = errors.New("lanterndb: key exceeds maximum size")

// ErrValueTooLarge is returned by Put when value exceeds the
// configured Config.MaxValueBytes.
var ErrValueTooLarge = errors.New("lanterndb: value exceeds maximum size")

// DB is an open, embedded key/value store. A DB is safe for concurrent
// use by multiple goroutines.
type DB struct {
	cfg    Config
	dir    string
	logger Logger
	stats  *Stats

	fs        vfs.FS
	lock      io.Closer
	files     *fileManager
	reclaimer *reclaimer

	wal            *wal.Writer
	manifestWriter *manifest.Writer

	mu      sync.RWMutex
	immCond *sync.Cond
	mt      *memtable.MemTable
	imm     *memtable.MemTable
	version *version.Version

	backgroundError error
	closed          bool

	writeCh         chan writeRequest
	coordinatorDone chan struct{}
	compactorStart  chan struct{}
	compactorStop   chan struct{}
	compactorDone   chan struct{}

	closeOnce sync.Once
}

// Open opens the database rooted at dir, creating it if it does not
// already exist, and replays the write-ahead log and manifest to
// recover whatever state survived the last clean or unclean shutdown.
func Open(dir string, cfg Config) (*DB, error) {
	cfg = cfg.withDefaults()
	fs := cfg.FS

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	lock, err := fs.Lock(dir + "/LOCK")
	if err != nil {
		return nil, err
	}

	db := &DB{
		cfg:             cfg,
		dir:             dir,
		logger:          cfg.Logger,
		stats:           cfg.Stats,
		fs:              fs,
		lock:            lock,
		mt:              memtable.NewMemTable(),
		writeCh:         make(chan writeRequest),
		coordinatorDone: make(chan struct{}),
		compactorStart:  make(chan struct{}, 1),
		compactorStop:   make(chan struct{}),
		compactorDone:   make(chan struct{}),
	}
	db.immCond = sync.NewCond(&db.mu)
	db.files = newFileManager(fs, dir, 0, cfg.BlockMetaCacheBytes)
	db.reclaimer = newReclaimer(db.files)
	db.version = version.New(db.files)

	if err := db.recover(); err != nil {
		_ = lock.Close()
		return nil, err
	}
	db.reclaimer.retain(db.version.AllFileIDs())

	// A ".prev" WAL left over from a crash between rotation and the
	// flush that would have discarded it has already been folded into
	// db.mt by recoverWAL; delete it so a future rotation can recreate
	// it for the next generation.
	if prevPath := db.walPrevPath(); fs.Exists(prevPath) {
		if err := fs.Remove(prevPath); err != nil {
			_ = lock.Close()
			return nil, err
		}
	}

	walFile, err := fs.OpenAppend(dir + "/" + cfg.WALFileName)
	if err != nil {
		_ = lock.Close()
		return nil, err
	}
	db.wal = wal.NewWriter(walFile)

	manifestFile, err := fs.OpenAppend(dir + "/" + cfg.ManifestFileName)
	if err != nil {
		_ = lock.Close()
		return nil, err
	}
	db.manifestWriter = manifest.NewWriter(manifestFile, cfg.ManifestCompression)

	go db.writeCoordinatorLoop()
	go db.compactorLoop()

	return db, nil
}

// recover replays the manifest log into db.version and the
// write-ahead log into db.mt, in that order: the manifest only ever
// records tables that were already durably flushed, while the WAL may
// still hold entries a crash never got to flush, so replaying the WAL
// on top reproduces exactly the state the database had immediately
// before it stopped.
func (db *DB) recover() error {
	if err := db.recoverManifest(); err != nil {
		return err
	}
	return db.recoverWAL()
}

func (db *DB) recoverManifest() error {
	path := db.dir + "/" + db.cfg.ManifestFileName
	if !db.fs.Exists(path) {
		return nil
	}
	f, err := db.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := manifest.NewReader(f)
	v := db.version
	var maxFileID uint64
	for {
		change, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		v = v.Apply(change)
		for _, id := range v.AllFileIDs() {
			if id > maxFileID {
				maxFileID = id
			}
		}
	}
	db.version = v
	db.files.bumpNextID(maxFileID)
	return nil
}

// recoverWAL replays a prior generation's ".prev" file, if a crash left
// one behind, before the current generation's file: "prev" always
// holds strictly older records than "current" (rotation only ever
// creates "prev" from what was "current"), so replaying in that order
// reproduces the original write order.
func (db *DB) recoverWAL() error {
	if err := db.replayWALFile(db.walPrevPath()); err != nil {
		return err
	}
	return db.replayWALFile(db.walPath())
}

func (db *DB) replayWALFile(path string) error {
	if !db.fs.Exists(path) {
		return nil
	}
	f, err := db.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := wal.NewReader(f)
	for {
		rec, err := r.ReadRecord()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		db.mt.Insert(rec.Key, rec.Value)
	}
	return nil
}

func (db *DB) walPath() string     { return db.dir + "/" + db.cfg.WALFileName }
func (db *DB) walPrevPath() string { return db.walPath() + ".prev" }

// rotateWAL durably syncs and closes the active WAL file, renames it
// aside as the ".prev" generation, and opens a fresh file at the
// active path for the memtable installed in its place. Called by the
// write coordinator under db.mu as part of memtable rotation; the
// coordinator is the WAL's only writer, so no further synchronization
// is needed here.
func (db *DB) rotateWAL() error {
	if err := db.wal.DurableSync(); err != nil {
		return err
	}
	if err := db.wal.Close(); err != nil {
		return err
	}
	if err := db.fs.Rename(db.walPath(), db.walPrevPath()); err != nil {
		return err
	}
	f, err := db.fs.OpenAppend(db.walPath())
	if err != nil {
		return err
	}
	db.wal = wal.NewWriter(f)
	return nil
}

// discardFlushedWAL deletes the ".prev" WAL generation once the
// memtable it was paired with has been durably flushed (or found
// empty): its entries are now redundant, either already present in a
// Sorted Table the current Version reaches, or never written at all.
func (db *DB) discardFlushedWAL() error {
	path := db.walPrevPath()
	if !db.fs.Exists(path) {
		return nil
	}
	return db.fs.Remove(path)
}

// Get returns the current value of key, or found == false if key has
// no entry or its most recent entry is a delete.
func (db *DB) Get(key []byte) (value []byte, found bool, err error) {
	db.mu.RLock()
	if db.closed {
		db.mu.RUnlock()
		return nil, false, ErrClosed
	}
	if db.backgroundError != nil {
		db.mu.RUnlock()
		return nil, false, db.backgroundError
	}
	if value, found = db.mt.Get(key); found {
		db.mu.RUnlock()
		db.stats.recordKeyRead()
		return value, value != nil, nil
	}
	if db.imm != nil {
		if value, found = db.imm.Get(key); found {
			db.mu.RUnlock()
			db.stats.recordKeyRead()
			return value, value != nil, nil
		}
	}
	v := db.version
	db.mu.RUnlock()

	value, found, err = v.Get(key)
	db.stats.recordKeyRead()
	return value, found, err
}

// Put sets key to value, overwriting any existing entry.
func (db *DB) Put(key, value []byte) error {
	return db.write(key, value)
}

// Delete records a tombstone for key, shadowing any earlier value once
// compaction has not yet dropped it.
func (db *DB) Delete(key []byte) error {
	return db.write(key, nil)
}

// write holds db.mu for read across the send to writeCh and the wait
// for its result: Close acquires the write lock to set db.closed and
// close writeCh, so it can never observe a write still in flight here,
// and a write that passes the closed check above is guaranteed the
// channel stays open for its send.
func (db *DB) write(key, value []byte) error {
	if len(key) > MaxKeyBytes {
		return ErrKeyTooLarge
	}
	if int64(len(value)) > db.cfg.MaxValueBytes {
		return ErrValueTooLarge
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrClosed
	}
	if db.backgroundError != nil {
		return db.backgroundError
	}

	req := writeRequest{key: key, value: value, done: make(chan error, 1)}
	db.writeCh <- req
	return <-req.done
}

// Stats returns a point-in-time snapshot of the database's counters.
func (db *DB) Stats() Snapshot {
	return db.stats.Snapshot()
}

// Close stops the write coordinator and compactor, flushes any
// pending writes, and releases the database's file handles and
// directory lock. Close is idempotent.
func (db *DB) Close() error {
	var err error
	db.closeOnce.Do(func() {
		db.mu.Lock()
		db.closed = true
		db.mu.Unlock()

		close(db.writeCh)
		<-db.coordinatorDone

		close(db.compactorStop)
		<-db.compactorDone

		if walErr := db.wal.Close(); walErr != nil && err == nil {
			err = walErr
		}
		if mErr := db.manifestWriter.Close(); mErr != nil && err == nil {
			err = mErr
		}
		db.reclaimer.close()
		db.files.close()
		if lockErr := db.lock.Close(); lockErr != nil && err == nil {
			err = lockErr
		}
	})
	return err
}
