package lanterndb

// compactor.go implements the compactor (SPEC_FULL §4.10): the single
// background goroutine that flushes the immutable memtable into a
// fresh level-0 Sorted Table and then runs the "level cascade" —
// repeatedly compacting whichever level is over its table-count limit
// until none is, or until a new flush request preempts it.
//
// Grounded on the teacher's flush.go doFlush: lock, snapshot+clear the
// immutable memtable under the lock, run the job outside it, then
// re-lock to publish the result and broadcast to unblock writers
// waiting in maybeRotateMemtable.

import (
	"github.com/lanterndb/lanterndb/internal/compaction"
	"github.com/lanterndb/lanterndb/internal/flush"
	"github.com/lanterndb/lanterndb/internal/logging"
	"github.com/lanterndb/lanterndb/internal/manifest"
)

func (db *DB) compactorLoop() {
	defer close(db.compactorDone)

	for {
		select {
		case <-db.compactorStart:
		case <-db.compactorStop:
			return
		}

		db.runFlushAndCascade()
	}
}

// runFlushAndCascade flushes the current immutable memtable (if any)
// and then repeatedly schedules compactions until no level needs one,
// checking between each step whether a new flush is already waiting so
// the cascade doesn't starve it.
func (db *DB) runFlushAndCascade() {
	if err := db.runFlush(); err != nil {
		db.setBackgroundError(err)
		return
	}

	limits := compaction.Limits{
		Level0FileLimit:       db.cfg.Level0FileLimit,
		LevelSizeExpandFactor: db.cfg.LevelSizeExpandFactor,
		TargetTableSize:       db.cfg.TargetTableSize,
	}

	for {
		select {
		case <-db.compactorStop:
			return
		default:
		}

		db.mu.RLock()
		v := db.version
		db.mu.RUnlock()

		change, dropped, bytesWritten, err := compaction.ScheduleOne(v, limits, db.files)
		if err != nil {
			db.setBackgroundError(err)
			return
		}
		if change == nil {
			return
		}
		if err := db.publishChange(change, dropped); err != nil {
			db.setBackgroundError(err)
			return
		}
		db.stats.recordCompaction()
		db.stats.addBytesCompacted(bytesWritten)

		select {
		case <-db.compactorStart:
			// A new flush is already queued; let it run this pass
			// through the loop before picking the next compaction.
			if err := db.runFlush(); err != nil {
				db.setBackgroundError(err)
				return
			}
		default:
		}
	}
}

// runFlush flushes db.imm into a fresh level-0 table, if one is
// pending. It is a no-op (not an error) when there is nothing to
// flush, since the compactor may be woken spuriously by the cascade's
// own preemption check.
func (db *DB) runFlush() error {
	db.mu.RLock()
	imm := db.imm
	db.mu.RUnlock()
	if imm == nil {
		return nil
	}

	change, bytesWritten, err := flush.Run(imm, db.files)
	if err != nil {
		if err == flush.ErrEmptyMemtable {
			if err := db.discardFlushedWAL(); err != nil {
				return err
			}
			db.mu.Lock()
			db.imm = nil
			db.immCond.Broadcast()
			db.mu.Unlock()
			return nil
		}
		return err
	}

	if err := db.publishChange(change, 0); err != nil {
		return err
	}
	if err := db.discardFlushedWAL(); err != nil {
		return err
	}

	db.mu.Lock()
	db.imm = nil
	db.immCond.Broadcast()
	db.mu.Unlock()

	db.stats.recordFlush()
	db.stats.addBytesWritten(bytesWritten)
	db.logger.Debugf(logging.NSCompact + "flushed memtable to level 0")
	return nil
}

// publishChange durably records change in the manifest, applies it to
// the current Version, and installs the result as the new current
// Version under the write lock, in that fixed order: manifest durable
// write, then apply, then publish, then notify the reclaimer. Waking
// writers waiting on immCond is left to runFlush, once it has cleared
// the immutable slot. Publishing before the manifest record is
// durable would let a reader observe a file set that a crash could
// still roll back.
func (db *DB) publishChange(change *manifest.LevelChange, tombstonesDropped uint64) error {
	if err := db.manifestWriter.Append(change); err != nil {
		return err
	}

	db.mu.Lock()
	prev := db.version
	next := prev.Apply(change)
	db.version = next
	db.mu.Unlock()

	db.reclaimer.retain(next.AllFileIDs())
	db.reclaimer.release(prev.AllFileIDs())
	if tombstonesDropped > 0 {
		db.stats.addTombstonesDropped(tombstonesDropped)
	}
	return nil
}
