package ledgercodec

import (
	"encoding/binary"
	"fmt"
)

// Block is an ordered list of entries plus the metadata captured at commit
// time. Offset is transient: it is never persisted as part of the payload
// and is populated only when a block is read back from storage.
type Block struct {
	Entries     []Entry
	TimestampNs uint64
	ParentHash  []byte
	Offset      uint64
}

// EncodeBlockPayload serializes b's persisted fields (parent hash, timestamp,
// and entries, in that order) into the block payload that follows the
// header in storage. Offset is not part of the encoding.
func EncodeBlockPayload(b Block) []byte {
	entryBufs := make([][]byte, len(b.Entries))
	entriesSize := 0
	for i, e := range b.Entries {
		entryBufs[i] = EncodeEntry(e)
		entriesSize += len(entryBufs[i])
	}

	size := 4 + len(b.ParentHash) + 8 + 4 + entriesSize
	buf := make([]byte, size)

	off := putLenPrefixed(buf, 0, b.ParentHash)
	binary.LittleEndian.PutUint64(buf[off:], b.TimestampNs)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(b.Entries)))
	off += 4

	for _, eb := range entryBufs {
		off += copy(buf[off:], eb)
	}

	return buf
}

// DecodeBlockPayload parses a block payload previously produced by
// [EncodeBlockPayload]. It returns ErrBlockCorrupted if the buffer is
// truncated relative to its own declared lengths, or has trailing bytes
// left over after decoding the declared entry count.
func DecodeBlockPayload(buf []byte) (Block, error) {
	parentHash, off, err := getLenPrefixed(buf, 0)
	if err != nil {
		return Block{}, err
	}

	if off+8 > len(buf) {
		return Block{}, fmt.Errorf("%w: truncated timestamp", ErrBlockCorrupted)
	}
	ts := binary.LittleEndian.Uint64(buf[off:])
	off += 8

	if off+4 > len(buf) {
		return Block{}, fmt.Errorf("%w: truncated entry count", ErrBlockCorrupted)
	}
	count := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	if count < 0 {
		return Block{}, fmt.Errorf("%w: negative entry count", ErrBlockCorrupted)
	}

	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		e, n, err := DecodeEntry(buf[off:])
		if err != nil {
			return Block{}, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, e)
		off += n
	}

	if off != len(buf) {
		return Block{}, fmt.Errorf("%w: %d trailing bytes after block payload", ErrBlockCorrupted, len(buf)-off)
	}

	return Block{
		Entries:     entries,
		TimestampNs: ts,
		ParentHash:  parentHash,
	}, nil
}
