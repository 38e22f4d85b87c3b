package wal

import (
	"bytes"
	"io"
	"testing"

	"github.com/lanterndb/lanterndb/internal/vfs"
)

func TestAppendAndReplay(t *testing.T) {
	fs := vfs.NewMemFS()
	wf, err := fs.Create("memtable_log")
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(wf)

	entries := []struct {
		key, value []byte
	}{
		{[]byte("a"), []byte("1")},
		{[]byte("b"), nil},
		{[]byte("c"), []byte("3")},
	}
	for _, e := range entries {
		if err := w.Append(e.key, e.value); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.DurableSync(); err != nil {
		t.Fatal(err)
	}

	rf, err := fs.Open("memtable_log")
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader(rf)
	for i, want := range entries {
		rec, err := r.ReadRecord()
		if err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
		if !bytes.Equal(rec.Key, want.key) {
			t.Fatalf("entry %d: key = %q, want %q", i, rec.Key, want.key)
		}
		if !bytes.Equal(rec.Value, want.value) {
			t.Fatalf("entry %d: value = %q, want %q", i, rec.Value, want.value)
		}
	}
	if _, err := r.ReadRecord(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReplayEmptyLog(t *testing.T) {
	fs := vfs.NewMemFS()
	_, _ = fs.Create("memtable_log")
	rf, err := fs.Open("memtable_log")
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader(rf)
	if _, err := r.ReadRecord(); err != io.EOF {
		t.Fatalf("expected io.EOF on empty log, got %v", err)
	}
}

func TestReplayTrailingPartialRecordIsClean(t *testing.T) {
	fs := vfs.NewMemFS()
	wf, _ := fs.Create("memtable_log")
	w := NewWriter(wf)
	if err := w.Append([]byte("complete"), []byte("ok")); err != nil {
		t.Fatal(err)
	}
	if err := w.DurableSync(); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash mid-append: a dangling key-length prefix with no
	// key bytes behind it.
	raw, _ := fs.OpenRandomAccess("memtable_log")
	size := raw.Size()
	tail := make([]byte, size)
	_, _ = raw.ReadAt(tail, 0)
	_, _ = wf.Write([]byte{0x05, 0x00})
	_ = wf.Sync()

	rf, err := fs.Open("memtable_log")
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader(rf)
	rec, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !bytes.Equal(rec.Key, []byte("complete")) {
		t.Fatalf("key = %q", rec.Key)
	}
	if _, err := r.ReadRecord(); err != io.EOF {
		t.Fatalf("trailing partial record should read as clean EOF, got %v", err)
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	fs := vfs.NewMemFS()
	wf, _ := fs.Create("memtable_log")
	w := NewWriter(wf)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Append([]byte("a"), []byte("1")); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
