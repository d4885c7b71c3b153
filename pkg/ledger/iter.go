package ledger

import (
	"errors"
	"fmt"
	"iter"

	"github.com/calvinalkan/ledgerchain/pkg/ledgercodec"
	"github.com/calvinalkan/ledgerchain/pkg/ledgerhash"
)

// RawBlock is one element of the sequence produced by IterRaw: a decoded
// header/block pair read directly off the backend, independent of the
// committed index.
type RawBlock struct {
	Header ledgercodec.Header
	Block  ledgercodec.Block

	// Err is non-nil exactly on the last element a range loop will observe:
	// BlockCorrupted or any backend read error halts the sequence after
	// yielding it. A clean end of chain (BlockEmpty) stops the sequence
	// without ever producing an element with Err set.
	Err error
}

type rawBlockResult struct {
	header ledgercodec.Header
	block  ledgercodec.Block
	err    error
}

// iterRawBlocks is the internal engine used by both RefreshLedger and
// IterRaw. It reads headers/payloads directly off e.backend starting at
// offset, advancing by each header's JumpBytesNextBlock, and stops cleanly
// on ledgercodec.ErrBlockEmpty.
func (e *Engine) iterRawBlocks(startOffset uint64) iter.Seq[rawBlockResult] {
	return func(yield func(rawBlockResult) bool) {
		offset := startOffset

		for {
			headerBuf := make([]byte, ledgercodec.HeaderSize)
			if err := e.backend.Read(offset, headerBuf); err != nil {
				yield(rawBlockResult{err: fmt.Errorf("read header at %d: %w", offset, err)})
				return
			}

			header, err := ledgercodec.DecodeHeader(headerBuf)
			if err != nil {
				if isBlockEmpty(err) {
					return
				}
				yield(rawBlockResult{err: fmt.Errorf("decode header at %d: %w", offset, err)})
				return
			}

			payloadSize := header.JumpBytesNextBlock - ledgercodec.HeaderSize
			payloadBuf := make([]byte, payloadSize)
			if err := e.backend.Read(offset+ledgercodec.HeaderSize, payloadBuf); err != nil {
				yield(rawBlockResult{err: fmt.Errorf("read payload at %d: %w", offset, err)})
				return
			}

			block, err := ledgercodec.DecodeBlockPayload(payloadBuf)
			if err != nil {
				yield(rawBlockResult{err: fmt.Errorf("decode payload at %d: %w", offset, err)})
				return
			}
			block.Offset = offset

			if !yield(rawBlockResult{header: header, block: block}) {
				return
			}

			offset += uint64(header.JumpBytesNextBlock)
		}
	}
}

func isBlockEmpty(err error) bool {
	return errors.Is(err, ledgercodec.ErrBlockEmpty)
}

// IterRaw produces a lazy, finite, non-restartable sequence of (header,
// block) pairs starting at the partition table's data-region start,
// advancing by each header's JumpBytesNextBlock. It stops cleanly at the
// end-of-chain sentinel; BlockCorrupted or any backend read error halts the
// sequence after yielding one final RawBlock with Err set. The sequence
// never mutates engine state; callers obtain a fresh iterator per scan.
func (e *Engine) IterRaw() iter.Seq[RawBlock] {
	return func(yield func(RawBlock) bool) {
		for r := range e.iterRawBlocks(e.partition.DataPartitionStartLBA) {
			if !yield(RawBlock{Header: r.header, Block: r.block, Err: r.err}) {
				return
			}
		}
	}
}

// RawSliceBlock is one element of the sequence produced by
// IterRawFromSlice.
type RawSliceBlock struct {
	Header      ledgercodec.Header
	Block       ledgercodec.Block
	ChainHash   []byte
	StartOffset uint64
	Err         error
}

// IterRawFromSlice applies the same decoding logic as IterRaw to an
// in-memory contiguous byte buffer whose offset 0 is the first candidate
// header position, additionally computing each block's chain hash. It
// halts silently at BlockEmpty, and yields an error (then halts) on a
// zero-length jump or any decode failure, to avoid looping forever on a
// corrupt buffer.
func IterRawFromSlice(data []byte) iter.Seq[RawSliceBlock] {
	return func(yield func(RawSliceBlock) bool) {
		offset := uint64(0)

		for {
			if offset >= uint64(len(data)) || uint64(len(data))-offset < ledgercodec.HeaderSize {
				return
			}

			headerBuf := data[offset : offset+ledgercodec.HeaderSize]
			header, err := ledgercodec.DecodeHeader(headerBuf)
			if err != nil {
				if isBlockEmpty(err) {
					return
				}
				yield(RawSliceBlock{Err: fmt.Errorf("decode header at %d: %w", offset, err)})
				return
			}

			if header.JumpBytesNextBlock == 0 {
				yield(RawSliceBlock{Err: fmt.Errorf("decode header at %d: zero-length jump", offset)})
				return
			}

			end := offset + uint64(header.JumpBytesNextBlock)
			if end > uint64(len(data)) {
				yield(RawSliceBlock{Err: fmt.Errorf("decode block at %d: truncated, want %d bytes", offset, header.JumpBytesNextBlock)})
				return
			}

			payloadBuf := data[offset+ledgercodec.HeaderSize : end]
			block, err := ledgercodec.DecodeBlockPayload(payloadBuf)
			if err != nil {
				yield(RawSliceBlock{Err: fmt.Errorf("decode payload at %d: %w", offset, err)})
				return
			}
			block.Offset = offset

			chainHash := ledgerhash.Chain(block.ParentHash, block.Entries, block.TimestampNs)

			if !yield(RawSliceBlock{Header: header, Block: block, ChainHash: chainHash, StartOffset: offset}) {
				return
			}

			offset = end
		}
	}
}

// GetBlockAtOffset reads and decodes a single block at an absolute offset.
// If offset is less than the first committed block's start position, it is
// clamped up to it, so offset 0 returns the first block.
func (e *Engine) GetBlockAtOffset(offset uint64) (ledgercodec.Header, ledgercodec.Block, error) {
	if offset < e.metadata.FirstBlockStartPos() {
		offset = e.metadata.FirstBlockStartPos()
	}

	headerBuf := make([]byte, ledgercodec.HeaderSize)
	if err := e.backend.Read(offset, headerBuf); err != nil {
		return ledgercodec.Header{}, ledgercodec.Block{}, fmt.Errorf("ledger: read header at %d: %w", offset, err)
	}

	header, err := ledgercodec.DecodeHeader(headerBuf)
	if err != nil {
		return ledgercodec.Header{}, ledgercodec.Block{}, err
	}

	payloadSize := header.JumpBytesNextBlock - ledgercodec.HeaderSize
	payloadBuf := make([]byte, payloadSize)
	if err := e.backend.Read(offset+ledgercodec.HeaderSize, payloadBuf); err != nil {
		return ledgercodec.Header{}, ledgercodec.Block{}, fmt.Errorf("ledger: read payload at %d: %w", offset, err)
	}

	block, err := ledgercodec.DecodeBlockPayload(payloadBuf)
	if err != nil {
		return ledgercodec.Header{}, ledgercodec.Block{}, err
	}
	block.Offset = offset

	return header, block, nil
}

// Iter produces a lazy sequence over committed entries whose operation is
// Upsert, in the insertion order of the committed index. An empty label
// means "every label"; a non-empty label restricts the sequence to that
// label.
func (e *Engine) Iter(label string) iter.Seq[ledgercodec.Entry] {
	return func(yield func(ledgercodec.Entry) bool) {
		iterIndex(e.committed, label, yield)
	}
}

// NextBlockIter is Iter's counterpart over the staging area.
func (e *Engine) NextBlockIter(label string) iter.Seq[ledgercodec.Entry] {
	return func(yield func(ledgercodec.Entry) bool) {
		iterIndex(e.staging, label, yield)
	}
}

func iterIndex(index entryIndex, label string, yield func(ledgercodec.Entry) bool) {
	labels := index.Keys()
	if label != "" {
		labels = []string{label}
	}

	for _, l := range labels {
		entries, ok := index.Get(l)
		if !ok {
			continue
		}

		for _, keyStr := range entries.Keys() {
			entry, _ := entries.Get(keyStr)
			if entry.Operation != ledgercodec.OpUpsert {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}
