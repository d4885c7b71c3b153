// Package ledger implements the embedded, append-only, hash-chained
// key-value ledger engine: a staging area, commit protocol, refresh/replay
// procedure, point lookups, and label-scoped iteration over blocks written
// through pkg/ledgercodec and linked with pkg/ledgerhash.
//
// The engine is single-threaded and cooperative: exactly one logical owner
// mutates and reads an Engine at a time. It holds no internal
// synchronization, mirroring the concurrency model of the backing
// [ledgerstore.Backend] it is built against. Creating two engines over the
// same backend simultaneously is undefined behavior.
package ledger

import (
	"bytes"
	"fmt"

	"github.com/calvinalkan/ledgerchain/pkg/ledgercodec"
	"github.com/calvinalkan/ledgerchain/pkg/ledgerhash"
	"github.com/calvinalkan/ledgerchain/pkg/ledgerstore"
)

type labelEntries = *orderedMap[string, ledgercodec.Entry]
type entryIndex = *orderedMap[string, labelEntries]

// Engine is the embedded ledger: a staging area for not-yet-committed
// entries, a committed index replayed from the log, and the metadata tip
// descriptor, all layered over a [ledgerstore.Backend].
type Engine struct {
	backend   ledgerstore.Backend
	partition ledgerstore.PartitionTable
	clock     Clock

	// labelsToIndex is nil when every label is indexed ("index every
	// label"), otherwise it names the set of labels materialized into the
	// committed index.
	labelsToIndex map[string]struct{}

	metadata  Metadata
	committed entryIndex
	staging   entryIndex
}

// Option configures New.
type Option func(*engineConfig)

type engineConfig struct {
	labelsToIndex  []string
	clock          Clock
	partitionTable ledgerstore.PartitionTable
}

// WithLabelsToIndex restricts the committed index to the given labels.
// Entries for other labels are still written to storage and still appear
// in the staging view before commit, but are absent from the committed
// index and from index-backed iteration. Passing no labels (an empty or
// nil argument) means index every label, the default.
func WithLabelsToIndex(labels ...string) Option {
	return func(c *engineConfig) { c.labelsToIndex = labels }
}

// WithClock overrides the clock used to timestamp commits. The default is
// [SystemClock].
func WithClock(clock Clock) Option {
	return func(c *engineConfig) { c.clock = clock }
}

// WithPartitionTable overrides the partition table describing where the
// data region begins. The default is [ledgerstore.DefaultPartitionTable].
func WithPartitionTable(pt ledgerstore.PartitionTable) Option {
	return func(c *engineConfig) { c.partitionTable = pt }
}

// New constructs an Engine over backend and replays any existing log via
// RefreshLedger. It fails if replay fails.
func New(backend ledgerstore.Backend, opts ...Option) (*Engine, error) {
	cfg := engineConfig{
		clock:          SystemClock,
		partitionTable: ledgerstore.DefaultPartitionTable(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var labelsToIndex map[string]struct{}
	if len(cfg.labelsToIndex) > 0 {
		labelsToIndex = make(map[string]struct{}, len(cfg.labelsToIndex))
		for _, l := range cfg.labelsToIndex {
			labelsToIndex[l] = struct{}{}
		}
	}

	e := &Engine{
		backend:       backend,
		partition:     cfg.partitionTable,
		clock:         cfg.clock,
		labelsToIndex: labelsToIndex,
		committed:     newOrderedMap[string, labelEntries](),
		staging:       newOrderedMap[string, labelEntries](),
	}

	if err := e.RefreshLedger(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) indexable(label string) bool {
	if e.labelsToIndex == nil {
		return true
	}
	_, ok := e.labelsToIndex[label]
	return ok
}

// BeginBlock asserts the staging area is empty. It exists as an explicit
// guard for callers that want to fail fast on a stray unfinished block
// rather than silently accumulating into it; upsert/delete stage directly
// without requiring it to be called first.
func (e *Engine) BeginBlock() error {
	if e.stagingLen() > 0 {
		return ErrOpenTransaction
	}
	return nil
}

func (e *Engine) stagingLen() int {
	n := 0
	for _, label := range e.staging.Keys() {
		entries, _ := e.staging.Get(label)
		n += entries.Len()
	}
	return n
}

// Upsert stages an upsert of key to value under label, overwriting any
// prior staged entry for that (label, key). It never touches storage.
func (e *Engine) Upsert(label string, key, value []byte) error {
	return e.stage(label, key, value, ledgercodec.OpUpsert)
}

// Delete stages a tombstone for (label, key): an entry with an empty value
// and operation Delete, overwriting any prior staged entry for that key. It
// never touches storage.
func (e *Engine) Delete(label string, key []byte) error {
	return e.stage(label, key, nil, ledgercodec.OpDelete)
}

func (e *Engine) stage(label string, key, value []byte, op ledgercodec.Operation) error {
	if label == "" {
		return fmt.Errorf("ledger: label must not be empty")
	}

	entries, ok := e.staging.Get(label)
	if !ok {
		entries = newOrderedMap[string, ledgercodec.Entry]()
		e.staging.Set(label, entries)
	}

	entries.Set(string(key), ledgercodec.Entry{
		Label:     label,
		Key:       append([]byte(nil), key...),
		Value:     append([]byte(nil), value...),
		Operation: op,
	})

	return nil
}

// Get returns the value for (label, key): the most recent staged entry if
// present, else the most recent committed entry. A hit whose operation is
// Delete returns ErrEntryNotFound. Entries filtered out of the committed
// index by WithLabelsToIndex are unreachable through Get after commit, but
// are readable from staging before commit.
func (e *Engine) Get(label string, key []byte) ([]byte, error) {
	if entries, ok := e.staging.Get(label); ok {
		if entry, ok := entries.Get(string(key)); ok {
			return valueOrNotFound(entry)
		}
	}

	if entries, ok := e.committed.Get(label); ok {
		if entry, ok := entries.Get(string(key)); ok {
			return valueOrNotFound(entry)
		}
	}

	return nil, ErrEntryNotFound
}

func valueOrNotFound(entry ledgercodec.Entry) ([]byte, error) {
	if entry.Operation == ledgercodec.OpDelete {
		return nil, ErrEntryNotFound
	}
	return entry.Value, nil
}

// CountEntriesForLabel returns the sum of committed and staged entry counts
// for label, including tombstones.
func (e *Engine) CountEntriesForLabel(label string) int {
	n := 0
	if entries, ok := e.committed.Get(label); ok {
		n += entries.Len()
	}
	if entries, ok := e.staging.Get(label); ok {
		n += entries.Len()
	}
	return n
}

// CommitBlock is a no-op if the staging area is empty. Otherwise it builds
// a block from the staged entries in insertion order, hashes and persists
// it, advances the metadata, and clears staging.
func (e *Engine) CommitBlock() error {
	if e.stagingLen() == 0 {
		return nil
	}

	timestampNs := e.clock()

	blockEntries := make([]ledgercodec.Entry, 0, e.stagingLen())
	for _, label := range e.staging.Keys() {
		entries, _ := e.staging.Get(label)
		for _, keyStr := range entries.Keys() {
			entry, _ := entries.Get(keyStr)
			blockEntries = append(blockEntries, entry)

			if e.indexable(label) {
				committedEntries, ok := e.committed.Get(label)
				if !ok {
					committedEntries = newOrderedMap[string, ledgercodec.Entry]()
					e.committed.Set(label, committedEntries)
				}
				committedEntries.Set(keyStr, entry)
			}
		}
	}

	parentHash := e.metadata.TipBlockChainHash()

	block := ledgercodec.Block{
		Entries:     blockEntries,
		TimestampNs: timestampNs,
		ParentHash:  parentHash,
	}
	payload := ledgercodec.EncodeBlockPayload(block)

	nextBlockStartPos := e.metadata.NextBlockStartPos()
	tipBlockStartPos, _ := e.metadata.TipBlockStartPos()

	header := ledgercodec.Header{
		BlockVersion:       ledgercodec.BlockVersion1,
		JumpBytesPrevBlock: int32(int64(tipBlockStartPos) - int64(nextBlockStartPos)),
		JumpBytesNextBlock: uint32(ledgercodec.HeaderSize + len(payload)),
	}
	headerBytes := ledgercodec.EncodeHeader(header)

	// Ordered writes: header, then payload. Both must complete before the
	// sentinel write.
	if err := e.backend.Write(nextBlockStartPos, headerBytes); err != nil {
		return fmt.Errorf("ledger: write block header: %w", err)
	}
	if err := e.backend.Write(nextBlockStartPos+ledgercodec.HeaderSize, payload); err != nil {
		return fmt.Errorf("ledger: write block payload: %w", err)
	}

	newChainHash := ledgerhash.Chain(parentHash, blockEntries, timestampNs)
	newNextBlockStartPos := nextBlockStartPos + uint64(header.JumpBytesNextBlock)
	e.metadata.updateFromAppendedBlock(newChainHash, timestampNs, newNextBlockStartPos)

	sentinel := make([]byte, ledgercodec.HeaderSize)
	if err := e.backend.Write(newNextBlockStartPos, sentinel); err != nil {
		return fmt.Errorf("ledger: write end-of-chain sentinel: %w", err)
	}

	e.staging.Clear()

	return nil
}

// RefreshLedger resets the committed index, staging area, and metadata,
// then replays the persisted log: it iterates blocks from the partition
// table's data-region start, verifies parent-hash continuity at each step,
// and finally replays each block's entries into the committed index in
// commit order. RefreshLedger is legal from Idle or from a freshly
// constructed Engine; calling it with a non-empty staging area discards
// the staging area without error.
func (e *Engine) RefreshLedger() error {
	startLBA := e.partition.DataPartitionStartLBA

	e.metadata = newMetadata(startLBA)
	e.committed.Clear()
	e.staging.Clear()

	size, err := e.backend.SizeBytes()
	if err != nil {
		return fmt.Errorf("ledger: refresh: %w", err)
	}
	if size < startLBA+ledgercodec.HeaderSize {
		return nil
	}

	var collected []ledgercodec.Block
	expectedParentHash := []byte{}

	for r := range e.iterRawBlocks(startLBA) {
		if r.err != nil {
			return fmt.Errorf("ledger: refresh: %w", r.err)
		}

		block := r.block
		if !bytes.Equal(block.ParentHash, expectedParentHash) {
			return fmt.Errorf("%w: at offset %d", ErrChainBroken, block.Offset)
		}

		newChainHash := ledgerhash.Chain(block.ParentHash, block.Entries, block.TimestampNs)
		nextBlockStartPos := e.metadata.NextBlockStartPos() + uint64(r.header.JumpBytesNextBlock)
		e.metadata.updateFromAppendedBlock(newChainHash, block.TimestampNs, nextBlockStartPos)

		expectedParentHash = newChainHash
		collected = append(collected, block)
	}

	for _, block := range collected {
		for _, entry := range block.Entries {
			if !e.indexable(entry.Label) {
				continue
			}

			switch entry.Operation {
			case ledgercodec.OpUpsert:
				entries, ok := e.committed.Get(entry.Label)
				if !ok {
					entries = newOrderedMap[string, ledgercodec.Entry]()
					e.committed.Set(entry.Label, entries)
				}
				entries.Set(string(entry.Key), entry)
			case ledgercodec.OpDelete:
				// Tombstones consume index slots only transiently during
				// replay: they are not kept as tombstones in the
				// refreshed index, unlike a delete staged before refresh
				// (see DESIGN.md). A label with no prior
				// Upsert is never materialized in the first place.
				if entries, ok := e.committed.Get(entry.Label); ok {
					entries.Delete(string(entry.Key))
				}
			}
		}
	}

	return nil
}

// Accessors mirroring the metadata tip descriptor.

func (e *Engine) GetBlocksCount() uint64 { return e.metadata.NumBlocks() }

func (e *Engine) GetLatestBlockHash() []byte { return e.metadata.TipBlockChainHash() }

func (e *Engine) GetLatestBlockTimestampNs() uint64 { return e.metadata.TipBlockTimestampNs() }

func (e *Engine) GetLatestBlockStartPos() (uint64, bool) { return e.metadata.TipBlockStartPos() }

func (e *Engine) GetNextBlockStartPos() uint64 { return e.metadata.NextBlockStartPos() }

// GetNextBlockEntriesCount returns the number of Upsert entries staged for
// label (or, if label is "", across every staged label).
func (e *Engine) GetNextBlockEntriesCount(label string) int {
	n := 0
	for v := range e.NextBlockIter(label) {
		_ = v
		n++
	}
	return n
}
