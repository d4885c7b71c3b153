package ledgercodec

import "errors"

// Sentinel errors returned by the codec. Callers should use errors.Is to
// classify a returned error; ErrBlockCorrupted and ErrUnsupportedBlockVersion
// are typically wrapped with additional detail via fmt.Errorf("%w: ...").
var (
	// ErrBlockEmpty signals that the bytes at a header position are the
	// end-of-chain sentinel. It is an internal codec signal: callers above
	// the codec translate it into "end of stream" and never surface it.
	ErrBlockEmpty = errors.New("ledgercodec: block is empty")

	// ErrBlockCorrupted indicates the decoded bytes are structurally
	// invalid: truncated input, an inconsistent header, or a payload that
	// does not match its declared length.
	ErrBlockCorrupted = errors.New("ledgercodec: block corrupted")

	// ErrUnsupportedBlockVersion indicates a header names a block_version
	// this codec does not know how to decode.
	ErrUnsupportedBlockVersion = errors.New("ledgercodec: unsupported block version")
)
