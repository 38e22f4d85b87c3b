/*
Package lanterndb provides a pure-Go, embedded, persistent key/value store
built on a log-structured merge tree.

Writes land in a write-ahead log and an in-memory table; once the memory
table grows past a configured limit it is swapped for a fresh one and
flushed in the background into an immutable, sorted on-disk table.
Background compaction merges these tables across levels to bound read
amplification and reclaim space taken by overwritten and deleted keys.

# Usage

	db, err := lanterndb.Open("/path/to/db", lanterndb.DefaultConfig())
	if err != nil {
		...
	}
	defer db.Close()

	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		...
	}
	value, found, err := db.Get([]byte("key"))

# Concurrency

A DB is safe for concurrent use by multiple goroutines.
*/
package lanterndb
