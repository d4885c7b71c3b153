// Package ledgerhash implements the deterministic block-level chain hash
// that cryptographically links each ledger block to its predecessor.
package ledgerhash

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/calvinalkan/ledgerchain/pkg/ledgercodec"
)

// Size is the length in bytes of a chain hash (SHA-256 digest size).
const Size = sha256.Size

// Chain computes the block chain hash over parentHash, entries, and
// timestampNs: a SHA-256 digest of the concatenation, in order, of
// parentHash, each entry's canonical serialized form (per pkg/ledgercodec),
// and the little-endian 8-byte representation of timestampNs.
//
// parentHash is empty for the genesis block. The result is the "chain hash"
// of the block described by these fields; the hash of the tip block is what
// callers expose as the ledger's latest block hash.
func Chain(parentHash []byte, entries []ledgercodec.Entry, timestampNs uint64) []byte {
	h := sha256.New()
	h.Write(parentHash)

	for _, e := range entries {
		h.Write(ledgercodec.EncodeEntry(e))
	}

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], timestampNs)
	h.Write(tsBuf[:])

	return h.Sum(nil)
}
