package ledgerstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	lockfs "github.com/calvinalkan/ledgerchain/internal/fs"
	pkgfs "github.com/calvinalkan/ledgerchain/pkg/fs"
)

// ErrLocked is returned by OpenFileBackend when another owner already holds
// the exclusive lock on the ledger file. The data-model contract treats two
// engines over one store as undefined behavior; file-backed storage turns
// that into a clean, fail-fast error instead.
var ErrLocked = errors.New("ledgerstore: ledger file is locked by another owner")

// FileBackend is a Backend over a single host-filesystem file. Random access
// is implemented with seek-then-read/write since [pkgfs.File] does not
// guarantee io.ReaderAt/io.WriterAt; this is safe under the engine's
// single-owner concurrency model (see package ledger).
type FileBackend struct {
	fsys pkgfs.FS
	file pkgfs.File
	lock *lockfs.Lock
}

// FileBackendOption configures OpenFileBackend.
type FileBackendOption func(*fileBackendConfig)

type fileBackendConfig struct {
	withoutLock bool
}

// WithoutLock disables the advisory exclusive flock normally taken on the
// ledger file. Use this only when the caller independently guarantees
// single-owner access (for example, a test harness that already serializes
// access to the path).
func WithoutLock() FileBackendOption {
	return func(c *fileBackendConfig) { c.withoutLock = true }
}

// OpenFileBackend opens (creating if necessary) a file-backed store at path
// using fsys. Unless [WithoutLock] is given, it takes an exclusive advisory
// lock on the file and returns ErrLocked if another owner already holds it.
func OpenFileBackend(fsys pkgfs.FS, path string, opts ...FileBackendOption) (*FileBackend, error) {
	cfg := fileBackendConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var lock *lockfs.Lock
	if !cfg.withoutLock {
		// Advisory locking is only meaningful against the real OS filesystem
		// (flock operates on inodes); it runs against its own [lockfs.Real]
		// regardless of the fsys passed in for actual file I/O.
		locker := lockfs.NewLocker(lockfs.NewReal())
		l, err := locker.TryLock(path)
		if err != nil {
			if errors.Is(err, lockfs.ErrWouldBlock) {
				return nil, fmt.Errorf("%w: %s", ErrLocked, path)
			}
			return nil, fmt.Errorf("ledgerstore: acquire lock on %q: %w", path, err)
		}
		lock = l
	}

	file, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		if lock != nil {
			_ = lock.Close()
		}
		return nil, fmt.Errorf("ledgerstore: open %q: %w", path, err)
	}

	return &FileBackend{fsys: fsys, file: file, lock: lock}, nil
}

// Close releases the file handle and, if held, the exclusive lock.
func (f *FileBackend) Close() error {
	closeErr := f.file.Close()

	var lockErr error
	if f.lock != nil {
		lockErr = f.lock.Close()
	}

	return errors.Join(closeErr, lockErr)
}

// SizeBytes returns the current length of the file.
func (f *FileBackend) SizeBytes() (uint64, error) {
	info, err := f.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("ledgerstore: stat: %w", err)
	}
	return uint64(info.Size()), nil
}

// Read fills buf starting at offset, failing with ErrOutOfRange if the
// range extends past the current file size.
func (f *FileBackend) Read(offset uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	size, err := f.SizeBytes()
	if err != nil {
		return err
	}
	if offset+uint64(len(buf)) > size {
		return fmt.Errorf("%w: offset=%d len=%d size=%d", ErrOutOfRange, offset, len(buf), size)
	}

	if _, err := f.file.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("ledgerstore: seek: %w", err)
	}

	if _, err := io.ReadFull(f.file, buf); err != nil {
		return fmt.Errorf("ledgerstore: read at %d: %w", offset, err)
	}

	return nil
}

// Write overwrites [offset, offset+len(buf)), growing the file as needed.
// Writing past the current end-of-file leaves the gap zero-filled, matching
// the host filesystem's sparse-file semantics.
func (f *FileBackend) Write(offset uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	if _, err := f.file.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("ledgerstore: seek: %w", err)
	}

	if _, err := f.file.Write(buf); err != nil {
		return fmt.Errorf("ledgerstore: write at %d: %w", offset, err)
	}

	return nil
}

// Grow extends the file by additionalPages * PageSize zero bytes and
// returns the page count the file had before growing.
func (f *FileBackend) Grow(additionalPages uint64) (uint64, error) {
	size, err := f.SizeBytes()
	if err != nil {
		return 0, err
	}

	prevPages := size / PageSize
	if size%PageSize != 0 {
		prevPages++
	}

	zeros := make([]byte, additionalPages*PageSize)
	if err := f.Write(prevPages*PageSize, zeros); err != nil {
		return 0, err
	}

	return prevPages, nil
}

var _ Backend = (*FileBackend)(nil)
