package table

import (
	"errors"
	"io"

	"github.com/lanterndb/lanterndb/internal/block"
	"github.com/lanterndb/lanterndb/internal/encoding"
)

// DefaultBlockSize is the target size for a data block before it is
// flushed and a new one started.
const DefaultBlockSize = 4096

// ErrNoEntries is returned by BuildFrom when the iterator yielded nothing
// at all, so no table was produced.
var ErrNoEntries = errors.New("table: iterator produced no entries")

// BuildOptions configures BuildFrom.
type BuildOptions struct {
	// BlockSize is the target size for a data block (default: 4096).
	BlockSize int

	// SoftSizeLimit bounds the total size of the table being built. Once
	// exceeded, BuildFrom stops after flushing the block in progress and
	// reports hasMore == true if the iterator still has entries left. A
	// value of 0 means unlimited: consume the iterator to exhaustion.
	SoftSizeLimit int64
}

// DefaultBuildOptions returns the default BuildOptions.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{BlockSize: DefaultBlockSize}
}

// BuildFrom consumes it in order, writing a Sorted Table to w: a sequence
// of data blocks, then the block-metadata array, then the trailer
// (metadata-count, metadata-offset). It stops either when it is
// exhausted, or once the soft size limit is exceeded after a block
// boundary, in which case hasMore reports whether it still has entries
// remaining for a subsequent ST.
//
// REQUIRES: it yields entries in strictly increasing key order.
func BuildFrom(it EntryIterator, w io.Writer, fileID uint64, opts BuildOptions) (meta *FileMetadata, hasMore bool, err error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}

	var (
		builder    = block.NewBuilder()
		metas      []BlockMeta
		offset     uint64
		blockFirst []byte
		blockLast  []byte
		blockCount uint64
		firstKey   []byte
		lastKey    []byte
	)

	flushBlock := func() error {
		if builder.Empty() {
			return nil
		}
		data := builder.Finish()
		n, werr := w.Write(data)
		if werr != nil {
			return werr
		}
		metas = append(metas, BlockMeta{
			FirstKey: blockFirst,
			LastKey:  blockLast,
			Offset:   offset,
			Size:     uint64(n),
			Count:    blockCount,
		})
		offset += uint64(n)
		builder.Reset()
		blockFirst, blockLast = nil, nil
		blockCount = 0
		return nil
	}

	for {
		entry, ok := it.Peek()
		if !ok {
			break
		}
		if opts.SoftSizeLimit > 0 && int64(offset) >= opts.SoftSizeLimit && len(metas) > 0 {
			hasMore = true
			break
		}
		it.Next()

		key := append([]byte(nil), entry.Key...)
		if err := builder.Add(key, entry.Value); err != nil {
			return nil, false, err
		}
		blockCount++
		if blockFirst == nil {
			blockFirst = key
		}
		blockLast = key
		if firstKey == nil {
			firstKey = key
		}
		lastKey = key

		if builder.EstimatedSize() >= opts.BlockSize {
			if err := flushBlock(); err != nil {
				return nil, false, err
			}
		}
	}

	if err := flushBlock(); err != nil {
		return nil, false, err
	}

	if len(metas) == 0 {
		return nil, false, ErrNoEntries
	}

	metaOffset := offset
	var metaBytes []byte
	for _, m := range metas {
		metaBytes = appendBlockMeta(metaBytes, m)
	}
	if _, err := w.Write(metaBytes); err != nil {
		return nil, false, err
	}
	offset += uint64(len(metaBytes))

	var trailer [trailerSize]byte
	encoding.EncodeFixed64(trailer[0:8], uint64(len(metas)))
	encoding.EncodeFixed64(trailer[8:16], metaOffset)
	if _, err := w.Write(trailer[:]); err != nil {
		return nil, false, err
	}

	return &FileMetadata{FileID: fileID, FirstKey: firstKey, LastKey: lastKey}, hasMore, nil
}
