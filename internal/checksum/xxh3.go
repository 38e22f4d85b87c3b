// Package checksum wraps the xxh3 hash used to shard the block-meta cache
// and to protect manifest payloads against silent corruption before the
// decompressor ever sees disk- or transit-controlled bytes.
package checksum

import "github.com/zeebo/xxh3"

// Sum64 returns the 64-bit xxh3 hash of data.
func Sum64(data []byte) uint64 {
	return xxh3.Hash(data)
}
