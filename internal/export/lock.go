package export

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"epochcap/internal/faults"
)

// LockFileName marks a folder that a batch run is writing into.
const LockFileName = ".epochcap.lock"

// DirectoryLock is an advisory lock held for the lifetime of a batch run.
type DirectoryLock struct {
	lock *flock.Flock
}

// LockDirectory acquires the run lock for path without blocking. It fails
// with faults.ErrBusy when another run holds it.
func LockDirectory(path string) (*DirectoryLock, error) {
	lockPath := filepath.Join(path, LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrExportWrite, "export", "acquire lock", lockPath, err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrBusy, "export", "acquire lock", fmt.Sprintf("another batch run is writing to %s", path), nil)
	}
	return &DirectoryLock{lock: lock}, nil
}

// Path returns the lock file location.
func (l *DirectoryLock) Path() string {
	if l == nil || l.lock == nil {
		return ""
	}
	return l.lock.Path()
}

// Unlock releases the lock. Safe to call more than once.
func (l *DirectoryLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
