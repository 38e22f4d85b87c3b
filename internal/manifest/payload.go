package manifest

import (
	"encoding/binary"
	"errors"

	"github.com/lanterndb/lanterndb/internal/checksum"
	"github.com/lanterndb/lanterndb/internal/compression"
)

// ErrShortPayload is returned when a manifest record's payload is too
// short to hold its own envelope header.
var ErrShortPayload = errors.New("manifest: payload shorter than its envelope header")

// ErrPayloadChecksumMismatch is returned when a decoded payload's
// checksum does not match the tag-encoded bytes it wraps. Per SPEC_FULL
// §4.14, this check runs before the decompressor ever sees disk- or
// transit-controlled bytes.
var ErrPayloadChecksumMismatch = errors.New("manifest: payload checksum mismatch")

// envelopeHeaderSize is 1 byte of codec + 4 bytes of uncompressed size +
// 8 bytes of xxh3 checksum. The uncompressed size isn't part of the
// illustrative layout in SPEC_FULL §4.14 but is required in practice:
// this repository's LZ4 codec uses raw blocks, which cannot recover
// their own decompressed length.
const envelopeHeaderSize = 1 + 4 + 8

// EncodePayload serializes change and wraps it in the manifest record's
// payload envelope: codec byte, uncompressed size, checksum of the
// uncompressed tag-encoding, then the (optionally compressed) bytes.
func EncodePayload(change *LevelChange, codec compression.Type) ([]byte, error) {
	raw := Encode(change)
	sum := checksum.Sum64(raw)

	body := raw
	if codec != compression.NoCompression {
		compressed, err := compression.Compress(codec, raw)
		if err != nil {
			return nil, err
		}
		body = compressed
	}

	out := make([]byte, 0, envelopeHeaderSize+len(body))
	out = append(out, byte(codec))
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(raw)))
	out = append(out, sizeBuf[:]...)
	var sumBuf [8]byte
	binary.LittleEndian.PutUint64(sumBuf[:], sum)
	out = append(out, sumBuf[:]...)
	out = append(out, body...)
	return out, nil
}

// DecodePayload reverses EncodePayload: decompresses (if applicable),
// verifies the checksum, then decodes the LevelChange.
func DecodePayload(payload []byte) (*LevelChange, error) {
	if len(payload) < envelopeHeaderSize {
		return nil, ErrShortPayload
	}
	codec := compression.Type(payload[0])
	uncompressedSize := int(binary.LittleEndian.Uint32(payload[1:5]))
	wantSum := binary.LittleEndian.Uint64(payload[5:13])
	body := payload[envelopeHeaderSize:]

	raw := body
	if codec != compression.NoCompression {
		decompressed, err := compression.Decompress(codec, body, uncompressedSize)
		if err != nil {
			return nil, err
		}
		raw = decompressed
	}
	if checksum.Sum64(raw) != wantSum {
		return nil, ErrPayloadChecksumMismatch
	}
	return Decode(raw)
}
