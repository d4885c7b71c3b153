package ledger

import "errors"

// Sentinel errors returned by the engine's public operations. Callers
// classify them with errors.Is. BlockCorrupted-class and version errors
// surface wrapped with additional detail; use errors.Is against these
// sentinels rather than comparing error strings.
var (
	// ErrEntryNotFound is returned by Get for an absent or tombstoned key.
	ErrEntryNotFound = errors.New("ledger: entry not found")

	// ErrOpenTransaction is returned by BeginBlock when the staging area is
	// not empty.
	ErrOpenTransaction = errors.New("ledger: there is already an open transaction")

	// ErrChainBroken is returned by RefreshLedger when a persisted block's
	// parent hash does not match the chain hash of the block before it.
	ErrChainBroken = errors.New("ledger: chain hash mismatch")
)
