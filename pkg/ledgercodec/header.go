// Package ledgercodec implements the versioned binary (de)serialization of
// ledger entries, blocks, and block headers.
package ledgercodec

import (
	"encoding/binary"
	"fmt"
)

// Block format constants.
const (
	// BlockVersion1 is the only block format recognized by this codec.
	BlockVersion1 = 1

	// HeaderSize is the fixed, on-storage size of a block header in bytes.
	HeaderSize = 12
)

// Header field offsets (bytes from the start of the header).
const (
	offBlockVersion        = 0x0 // uint32
	offJumpBytesPrevBlock  = 0x4 // int32
	offJumpBytesNextBlock  = 0x8 // uint32
)

// Header is the fixed-size preamble written immediately before each block
// payload. A header whose bytes are all zero is the end-of-chain sentinel
// and is reported by [DecodeHeader] as [ErrBlockEmpty] rather than as a
// decoded value.
type Header struct {
	// BlockVersion identifies the payload encoding. Only BlockVersion1 is
	// currently recognized.
	BlockVersion uint32

	// JumpBytesPrevBlock is the (non-positive) offset from this header's
	// start to the previous header's start. Zero at genesis.
	JumpBytesPrevBlock int32

	// JumpBytesNextBlock is the total size in bytes (header + payload) to
	// advance from this header's start to reach the next header.
	JumpBytesNextBlock uint32
}

// EncodeHeader serializes h into a HeaderSize-byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[offBlockVersion:], h.BlockVersion)
	binary.LittleEndian.PutUint32(buf[offJumpBytesPrevBlock:], uint32(h.JumpBytesPrevBlock))
	binary.LittleEndian.PutUint32(buf[offJumpBytesNextBlock:], h.JumpBytesNextBlock)
	return buf
}

// DecodeHeader parses a HeaderSize-byte slice into a Header.
//
// It returns ErrBlockEmpty if buf is entirely zero bytes (the end-of-chain
// sentinel), ErrUnsupportedBlockVersion if the version field names a format
// this codec does not recognize, and ErrBlockCorrupted if the decoded header
// is internally inconsistent (a non-sentinel header with a zero jump to the
// next block).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header truncated: got %d bytes, want %d", ErrBlockCorrupted, len(buf), HeaderSize)
	}

	if isAllZero(buf[:HeaderSize]) {
		return Header{}, ErrBlockEmpty
	}

	h := Header{
		BlockVersion:       binary.LittleEndian.Uint32(buf[offBlockVersion:]),
		JumpBytesPrevBlock: int32(binary.LittleEndian.Uint32(buf[offJumpBytesPrevBlock:])),
		JumpBytesNextBlock: binary.LittleEndian.Uint32(buf[offJumpBytesNextBlock:]),
	}

	if h.BlockVersion != BlockVersion1 {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedBlockVersion, h.BlockVersion)
	}

	if h.JumpBytesNextBlock == 0 {
		return Header{}, fmt.Errorf("%w: jump_bytes_next_block is zero in a non-sentinel header", ErrBlockCorrupted)
	}

	return h, nil
}

func isAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
