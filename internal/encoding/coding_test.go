package encoding

import (
	"bytes"
	"testing"
)

func TestFixed32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	EncodeFixed32(buf, 0x01020304)
	if got := DecodeFixed32(buf); got != 0x01020304 {
		t.Fatalf("got %x", got)
	}
	if buf[0] != 0x04 {
		t.Fatalf("expected little-endian byte order, got %x", buf)
	}
}

func TestFixed64RoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendFixed64(buf, 1<<40+7)
	if got := DecodeFixed64(buf); got != 1<<40+7 {
		t.Fatalf("got %d", got)
	}
}

func TestVarint64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16384, 1 << 40, ^uint64(0)}
	for _, v := range values {
		var buf []byte
		buf = AppendVarint64(buf, v)
		got, n, err := DecodeVarint64(buf)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Fatalf("roundtrip %d: got %d consumed %d want %d", v, got, n, len(buf))
		}
	}
}

func TestVarint64Truncated(t *testing.T) {
	buf := []byte{0x80, 0x80}
	if _, _, err := DecodeVarint64(buf); err != ErrVarintTruncated {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestLengthPrefixedSliceRoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendLengthPrefixedSlice(buf, []byte("hello"))
	buf = AppendLengthPrefixedSlice(buf, []byte("world!!"))

	s := NewSlice(buf)
	first, ok := s.GetLengthPrefixedSlice()
	if !ok || !bytes.Equal(first, []byte("hello")) {
		t.Fatalf("first field mismatch: %q ok=%v", first, ok)
	}
	second, ok := s.GetLengthPrefixedSlice()
	if !ok || !bytes.Equal(second, []byte("world!!")) {
		t.Fatalf("second field mismatch: %q ok=%v", second, ok)
	}
	if s.Remaining() != 0 {
		t.Fatalf("expected slice exhausted, %d bytes left", s.Remaining())
	}
}

func TestLengthPrefixedSliceTruncated(t *testing.T) {
	buf := AppendLengthPrefixedSlice(nil, []byte("abcdef"))
	buf = buf[:len(buf)-2]
	if _, _, err := DecodeLengthPrefixedSlice(buf); err != ErrBufferTooSmall {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}
