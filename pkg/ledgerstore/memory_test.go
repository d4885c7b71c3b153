package ledgerstore

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryBackendWriteReadRoundTrip(t *testing.T) {
	m := NewMemoryBackend()

	if err := m.Write(10, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	size, err := m.SizeBytes()
	if err != nil {
		t.Fatalf("SizeBytes: %v", err)
	}
	if size != 15 {
		t.Fatalf("SizeBytes() = %d, want 15", size)
	}

	buf := make([]byte, 5)
	if err := m.Read(10, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, []byte("hello")) {
		t.Fatalf("Read() = %q, want %q", buf, "hello")
	}
}

func TestMemoryBackendReadOutOfRange(t *testing.T) {
	m := NewMemoryBackend()
	_ = m.Write(0, []byte("abc"))

	err := m.Read(0, make([]byte, 10))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Read() = %v, want ErrOutOfRange", err)
	}
}

func TestMemoryBackendGrow(t *testing.T) {
	m := NewMemoryBackend()

	prev, err := m.Grow(2)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if prev != 0 {
		t.Fatalf("Grow() prevPages = %d, want 0", prev)
	}

	size, _ := m.SizeBytes()
	if size != 2*PageSize {
		t.Fatalf("SizeBytes() = %d, want %d", size, 2*PageSize)
	}

	prev2, err := m.Grow(1)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if prev2 != 2 {
		t.Fatalf("Grow() prevPages = %d, want 2", prev2)
	}
}

func TestMemoryBackendZeroFillsOnGrowth(t *testing.T) {
	m := NewMemoryBackend()
	_ = m.Write(0, []byte("a"))
	_ = m.Write(100, []byte("b"))

	buf := make([]byte, 99)
	if err := m.Read(1, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}
