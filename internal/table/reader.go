package table

import (
	"bytes"
	"sort"

	"github.com/lanterndb/lanterndb/internal/block"
	"github.com/lanterndb/lanterndb/internal/cache"
	"github.com/lanterndb/lanterndb/internal/encoding"
	"github.com/lanterndb/lanterndb/internal/vfs"
)

// Reader opens an ST file for point lookup and iteration. A Reader holds
// the file open and keeps the parsed block-metadata array in memory,
// either freshly parsed or retrieved from a shared block-meta cache.
type Reader struct {
	file   vfs.RandomAccessFile
	fileID uint64
	metas  []BlockMeta

	c      cache.Cache
	handle *cache.Handle
}

// Open opens file as the ST identified by fileID. If c is non-nil, the
// block-metadata array is looked up there first; on a miss it is parsed
// from the file's trailer and inserted into c for subsequent opens. c may
// be nil, in which case the metadata array is always parsed fresh.
func Open(file vfs.RandomAccessFile, fileID uint64, c cache.Cache) (*Reader, error) {
	r := &Reader{file: file, fileID: fileID, c: c}

	if c != nil {
		if h := c.Lookup(cache.CacheKey(fileID)); h != nil {
			metas, err := decodeBlockMetaArray(h.Value())
			if err != nil {
				c.Release(h)
				return nil, err
			}
			r.metas = metas
			r.handle = h
			return r, nil
		}
	}

	size := file.Size()
	if size < trailerSize {
		return nil, ErrBadTrailer
	}
	var tail [trailerSize]byte
	if _, err := file.ReadAt(tail[:], size-trailerSize); err != nil {
		return nil, err
	}
	count := encoding.DecodeFixed64(tail[0:8])
	metaOffset := encoding.DecodeFixed64(tail[8:16])
	if int64(metaOffset) > size-trailerSize || metaOffset > uint64(size) {
		return nil, ErrBadTrailer
	}

	metaBytes := make([]byte, uint64(size)-trailerSize-metaOffset)
	if _, err := file.ReadAt(metaBytes, int64(metaOffset)); err != nil {
		return nil, err
	}
	metas, err := decodeBlockMetaArray(metaBytes)
	if err != nil {
		return nil, err
	}
	if uint64(len(metas)) != count {
		return nil, ErrBadMetadata
	}
	r.metas = metas

	if c != nil {
		r.handle = c.Insert(cache.CacheKey(fileID), metaBytes, uint64(len(metaBytes)))
	}
	return r, nil
}

// Close releases the reader's cache pin, if any, and closes the
// underlying file.
func (r *Reader) Close() error {
	if r.handle != nil && r.c != nil {
		r.c.Release(r.handle)
		r.handle = nil
	}
	return r.file.Close()
}

// FileID returns the table's file identifier.
func (r *Reader) FileID() uint64 { return r.fileID }

// FirstKey returns the smallest key in the table.
func (r *Reader) FirstKey() []byte {
	if len(r.metas) == 0 {
		return nil
	}
	return r.metas[0].FirstKey
}

// LastKey returns the largest key in the table.
func (r *Reader) LastKey() []byte {
	if len(r.metas) == 0 {
		return nil
	}
	return r.metas[len(r.metas)-1].LastKey
}

// Metadata returns the {file_id, first_key, last_key} triple a Level
// keeps for this table.
func (r *Reader) Metadata() FileMetadata {
	return FileMetadata{FileID: r.fileID, FirstKey: r.FirstKey(), LastKey: r.LastKey()}
}

// Get looks up key. found is false when key is absent from the table;
// when found is true, value == nil means the entry is a tombstone.
func (r *Reader) Get(key []byte) (value []byte, found bool, err error) {
	if len(r.metas) == 0 {
		return nil, false, nil
	}
	if bytes.Compare(key, r.metas[len(r.metas)-1].LastKey) > 0 {
		return nil, false, nil
	}

	i := sort.Search(len(r.metas), func(i int) bool {
		return bytes.Compare(r.metas[i].LastKey, key) >= 0
	})
	if i == len(r.metas) {
		return nil, false, nil
	}

	m := r.metas[i]
	data := make([]byte, m.Size)
	if _, err := r.file.ReadAt(data, int64(m.Offset)); err != nil {
		return nil, false, err
	}
	v, ok := block.NewBlock(data).Get(key)
	return v, ok, nil
}

// Iterate returns a lazy, restartable EntryIterator over the table's
// entries in file (key) order. Each call returns an independent iterator
// positioned at the start.
func (r *Reader) Iterate() EntryIterator {
	return &tableIterator{r: r}
}

type tableIterator struct {
	r       *Reader
	nextBlk int
	cur     *block.Iterator
	err     error
}

func (it *tableIterator) loadNextBlock() bool {
	if it.nextBlk >= len(it.r.metas) {
		return false
	}
	m := it.r.metas[it.nextBlk]
	it.nextBlk++

	data := make([]byte, m.Size)
	if _, err := it.r.file.ReadAt(data, int64(m.Offset)); err != nil {
		it.err = err
		return false
	}
	bi := block.NewBlock(data).NewIterator()
	bi.SeekToFirst()
	it.cur = bi
	return true
}

// fill advances past exhausted blocks until cur points at a valid entry,
// or reports false once every block has been consumed.
func (it *tableIterator) fill() bool {
	for {
		if it.cur != nil {
			if err := it.cur.Error(); err != nil {
				it.err = err
				return false
			}
			if it.cur.Valid() {
				return true
			}
		}
		if !it.loadNextBlock() {
			return false
		}
	}
}

func (it *tableIterator) Peek() (Entry, bool) {
	if !it.fill() {
		return Entry{}, false
	}
	return Entry{Key: it.cur.Key(), Value: it.cur.Value()}, true
}

func (it *tableIterator) Next() (Entry, bool) {
	if !it.fill() {
		return Entry{}, false
	}
	e := Entry{Key: it.cur.Key(), Value: it.cur.Value()}
	it.cur.Next()
	return e, true
}

// Err returns the first read or decode error encountered during
// iteration, if any.
func (it *tableIterator) Err() error { return it.err }
