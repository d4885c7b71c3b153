package ledger

import "time"

// Clock yields the current time as nanoseconds since the Unix epoch. It is
// overrideable at construction for deterministic tests.
type Clock func() uint64

// SystemClock is the default Clock, backed by the host's wall clock.
func SystemClock() uint64 {
	return uint64(time.Now().UnixNano())
}
