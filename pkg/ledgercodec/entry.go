package ledgercodec

import (
	"encoding/binary"
	"fmt"
)

// Operation identifies the kind of mutation an Entry records.
type Operation uint8

const (
	// OpUpsert records that Key now maps to Value.
	OpUpsert Operation = 0

	// OpDelete records a tombstone: Key no longer maps to a value.
	OpDelete Operation = 1
)

func (op Operation) String() string {
	switch op {
	case OpUpsert:
		return "Upsert"
	case OpDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(op))
	}
}

// Entry is a single labeled operation record: a value-semantic tuple of
// label, key, value and operation. Two entries are equal iff all four
// fields match.
type Entry struct {
	Label     string
	Key       []byte
	Value     []byte
	Operation Operation
}

// EncodeEntry serializes e into its canonical form: each variable-length
// field is prefixed by a 4-byte little-endian length, in the order label,
// key, value, followed by a single operation byte. This is the exact byte
// sequence fed to the chain hasher in pkg/ledgerhash for each entry.
func EncodeEntry(e Entry) []byte {
	size := 4 + len(e.Label) + 4 + len(e.Key) + 4 + len(e.Value) + 1
	buf := make([]byte, size)

	off := 0
	off = putLenPrefixed(buf, off, []byte(e.Label))
	off = putLenPrefixed(buf, off, e.Key)
	off = putLenPrefixed(buf, off, e.Value)
	buf[off] = byte(e.Operation)

	return buf
}

// DecodeEntry parses a single entry out of buf starting at offset 0 and
// returns the entry along with the number of bytes consumed. It returns
// ErrBlockCorrupted if buf is too short for any of its length-prefixed
// fields or the trailing operation byte.
func DecodeEntry(buf []byte) (Entry, int, error) {
	label, off, err := getLenPrefixed(buf, 0)
	if err != nil {
		return Entry{}, 0, err
	}

	key, off, err := getLenPrefixed(buf, off)
	if err != nil {
		return Entry{}, 0, err
	}

	value, off, err := getLenPrefixed(buf, off)
	if err != nil {
		return Entry{}, 0, err
	}

	if off >= len(buf) {
		return Entry{}, 0, fmt.Errorf("%w: entry truncated before operation byte", ErrBlockCorrupted)
	}

	op := Operation(buf[off])
	off++

	return Entry{
		Label:     string(label),
		Key:       key,
		Value:     value,
		Operation: op,
	}, off, nil
}

func putLenPrefixed(buf []byte, off int, data []byte) int {
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(data)))
	off += 4
	copy(buf[off:], data)
	return off + len(data)
}

func getLenPrefixed(buf []byte, off int) ([]byte, int, error) {
	if off+4 > len(buf) {
		return nil, 0, fmt.Errorf("%w: truncated length prefix", ErrBlockCorrupted)
	}

	n := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	if n < 0 || off+n > len(buf) {
		return nil, 0, fmt.Errorf("%w: truncated field of length %d", ErrBlockCorrupted, n)
	}

	data := make([]byte, n)
	copy(data, buf[off:off+n])

	return data, off + n, nil
}
