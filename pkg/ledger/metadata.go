package ledger

// metadataV1 is the current version of the in-memory tip descriptor.
type metadataV1 struct {
	numBlocks            uint64
	prevBlockStartPos    *uint64
	tipBlockChainHash    []byte
	tipBlockTimestampNs  uint64
	tipBlockStartPos     *uint64
	nextBlockStartPos    uint64
	firstBlockStartPos   uint64
}

// Metadata holds the tip descriptor in a tagged-versioned form: the type
// itself names its format version (V1 today) so a future on-disk revision
// could add a variant without breaking readers of the old one. The engine
// recomputes this from the log at every refresh and never persists it; it
// is a plain field owned by the engine, not a Rc/RefCell-style shared cell,
// since the engine's single-owner concurrency model (see package doc) makes
// that unnecessary.
type Metadata struct {
	v1 metadataV1
}

// newMetadata initializes metadata from a partition table's data-region
// start offset: next_block_start_pos and first_block_start_pos begin there,
// and tip_block_start_pos starts as Some(startLBA) so that an empty ledger's
// genesis block is understood to belong at that offset.
func newMetadata(startLBA uint64) Metadata {
	return Metadata{v1: metadataV1{
		numBlocks:          0,
		prevBlockStartPos:  nil,
		tipBlockChainHash:  nil,
		tipBlockTimestampNs: 0,
		tipBlockStartPos:   ptr(startLBA),
		nextBlockStartPos:  startLBA,
		firstBlockStartPos: startLBA,
	}}
}

func (m *Metadata) NumBlocks() uint64 { return m.v1.numBlocks }

func (m *Metadata) PrevBlockStartPos() (uint64, bool) {
	if m.v1.prevBlockStartPos == nil {
		return 0, false
	}
	return *m.v1.prevBlockStartPos, true
}

func (m *Metadata) TipBlockChainHash() []byte { return m.v1.tipBlockChainHash }

func (m *Metadata) TipBlockTimestampNs() uint64 { return m.v1.tipBlockTimestampNs }

func (m *Metadata) TipBlockStartPos() (uint64, bool) {
	if m.v1.tipBlockStartPos == nil {
		return 0, false
	}
	return *m.v1.tipBlockStartPos, true
}

func (m *Metadata) NextBlockStartPos() uint64 { return m.v1.nextBlockStartPos }

func (m *Metadata) FirstBlockStartPos() uint64 { return m.v1.firstBlockStartPos }

// updateFromAppendedBlock advances the metadata after a block (whether just
// committed or replayed during refresh) has been appended at what was, just
// before this call, nextBlockStartPos.
func (m *Metadata) updateFromAppendedBlock(newChainHash []byte, blockTimestampNs uint64, newNextBlockStartPos uint64) {
	v := &m.v1

	v.numBlocks++
	blockStartPos := v.nextBlockStartPos
	v.prevBlockStartPos = v.tipBlockStartPos
	v.tipBlockChainHash = newChainHash
	v.tipBlockTimestampNs = blockTimestampNs
	v.tipBlockStartPos = ptr(v.nextBlockStartPos)
	v.nextBlockStartPos = newNextBlockStartPos

	// Opportunistic lowering: supports backends where the data region's
	// effective start can only be discovered by scanning. In every backend
	// shipped here the first block always sits at the partition table's
	// start_lba, so this is a no-op in practice; it is preserved because
	// future backends may not guarantee that.
	if blockStartPos > 0 && blockStartPos < v.firstBlockStartPos {
		v.firstBlockStartPos = blockStartPos
	}
}

func ptr[T any](v T) *T { return &v }
