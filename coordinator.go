package lanterndb

// coordinator.go implements the write coordinator (SPEC_FULL §4.9): the
// single goroutine that owns the write-ahead log and the active memory
// table. Every Put/Delete becomes a request on db.writeCh; the
// coordinator batches requests, appends them to the WAL, applies them
// to the memtable, and signals each request's completion channel.
//
// Grounded on the teacher's flush.go mutex/condition-variable pattern
// for coordinating with the background task that owns the immutable
// memtable (here, the compactor) and for recording a sticky background
// error that stops the database from accepting further writes.

import (
	"time"

	"github.com/lanterndb/lanterndb/internal/logging"
	"github.com/lanterndb/lanterndb/internal/memtable"
)

// writeRequest is one pending Put or Delete. value == nil records a
// delete (a tombstone). done receives exactly one error (nil on
// success) once the request has been appended to the WAL (fsynced only
// when Config.SyncWrite is set) and applied to the memtable.
type writeRequest struct {
	key   []byte
	value []byte
	done  chan error
}

func (db *DB) writeCoordinatorLoop() {
	defer close(db.coordinatorDone)

	var batch []writeRequest
	var batchBytes int
	timer := time.NewTimer(db.cfg.WriteBatchWait)
	if !timer.Stop() {
		<-timer.C
	}
	timerRunning := false

	finishBatch := func() {
		if len(batch) == 0 {
			return
		}
		db.appendBatch(batch)
		batch = batch[:0]
		batchBytes = 0
	}

	for {
		if !timerRunning && len(batch) > 0 {
			timer.Reset(db.cfg.WriteBatchWait)
			timerRunning = true
		}

		select {
		case req, ok := <-db.writeCh:
			if !ok {
				finishBatch()
				if timerRunning && !timer.Stop() {
					<-timer.C
				}
				db.wal.DurableSync()
				return
			}
			batch = append(batch, req)
			batchBytes += len(req.key) + len(req.value)
			if batchBytes >= db.cfg.WriteBatchBytes {
				if timerRunning && !timer.Stop() {
					<-timer.C
				}
				timerRunning = false
				finishBatch()
			}

		case <-timer.C:
			timerRunning = false
			finishBatch()
		}
	}
}

// appendBatch writes every request in batch to the WAL, flushes the
// buffer once, applies each request to the active memtable, and
// signals completion. A WAL append failure fails every request in the
// batch still pending and the DB's background error is set: per
// SPEC_FULL §7, I/O errors abort the batch and fail pending clients.
func (db *DB) appendBatch(batch []writeRequest) {
	for _, req := range batch {
		if err := db.wal.Append(req.key, req.value); err != nil {
			db.failBatch(batch, err)
			return
		}
	}
	if err := db.wal.FlushBuffer(); err != nil {
		db.failBatch(batch, err)
		return
	}
	if db.cfg.SyncWrite {
		if err := db.wal.DurableSync(); err != nil {
			db.failBatch(batch, err)
			return
		}
	}

	var bytesWritten int64
	for _, req := range batch {
		db.mt.Insert(req.key, req.value)
		bytesWritten += int64(len(req.key) + len(req.value))
		req.done <- nil
	}
	db.stats.addBytesWritten(bytesWritten)

	db.maybeRotateMemtable()
	db.maybeSlowWrites(len(batch))
}

func (db *DB) failBatch(batch []writeRequest, err error) {
	db.setBackgroundError(err)
	for _, req := range batch {
		req.done <- err
	}
}

// maybeRotateMemtable swaps the active memtable into the immutable slot
// and installs a fresh one once the active one has grown past
// MemtableSizeLimit, per SPEC_FULL §4.9's rotation step. It waits for
// any prior flush to have cleared the immutable slot first: this
// system keeps exactly one immutable memtable in flight at a time.
func (db *DB) maybeRotateMemtable() {
	if db.mt.ApproximateSize() < db.cfg.MemtableSizeLimit {
		return
	}

	db.mu.Lock()
	for db.imm != nil && db.backgroundError == nil {
		db.immCond.Wait()
	}
	if db.backgroundError != nil {
		db.mu.Unlock()
		return
	}
	if err := db.rotateWAL(); err != nil {
		db.mu.Unlock()
		db.setBackgroundError(err)
		return
	}
	db.imm = db.mt
	db.mt = memtable.NewMemTable()
	db.mu.Unlock()

	select {
	case db.compactorStart <- struct{}{}:
	default:
	}
}

// maybeSlowWrites injects a small per-request sleep once level 0's
// population reaches Level0SlowdownTrigger, applying backpressure to
// writers until compaction drains it.
func (db *DB) maybeSlowWrites(requests int) {
	db.mu.RLock()
	l0 := len(db.version.Levels[0].Files)
	db.mu.RUnlock()
	if l0 < db.cfg.Level0SlowdownTrigger {
		return
	}
	time.Sleep(time.Duration(requests) * time.Millisecond)
}

func (db *DB) setBackgroundError(err error) {
	db.mu.Lock()
	if db.backgroundError == nil {
		db.backgroundError = err
		db.logger.Fatalf(logging.NSWrite+"background error, rejecting further writes: %v", err)
	}
	db.mu.Unlock()
}
