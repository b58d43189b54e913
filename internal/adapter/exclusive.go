package adapter

import (
	"os"
	"path/filepath"
	"sync"
)

// DefaultLockPath is the host-wide lock file guarding the adapter.
var DefaultLockPath = filepath.Join(os.TempDir(), "cbusboot.lock")

type exclusive struct {
	driver   Driver
	lockPath string
	mutex    sync.Mutex
}

// Exclusive wraps d so that at most one handle is open at a time, in this
// process and, where file locks are supported, on this host. A second Open
// fails at once with ErrBusy instead of waiting. An empty lockPath disables
// the host-wide lock.
func Exclusive(d Driver, lockPath string) Driver {
	return &exclusive{
		driver:   d,
		lockPath: lockPath,
	}
}

func (e *exclusive) Open() (Handle, error) {
	if !e.mutex.TryLock() {
		return nil, &DriverError{Op: "open", Err: ErrBusy}
	}

	var lock fileLock
	if e.lockPath != "" {
		var err error
		lock, err = tryLockFile(e.lockPath)
		if err != nil {
			e.mutex.Unlock()
			return nil, Wrap("lock", err)
		}
	}

	h, err := e.driver.Open()
	if err != nil {
		unlock(lock)
		e.mutex.Unlock()
		return nil, err
	}
	return &exclusiveHandle{Handle: h, owner: e, lock: lock}, nil
}

type exclusiveHandle struct {
	Handle
	owner  *exclusive
	lock   fileLock
	once   sync.Once
	closed bool
}

func (h *exclusiveHandle) SetBitMode(mask byte, mode BitMode) error {
	if h.closed {
		return &DriverError{Op: "write", Err: ErrClosed}
	}
	return h.Handle.SetBitMode(mask, mode)
}

// PortNumber forwards to the wrapped handle when it can answer.
func (h *exclusiveHandle) PortNumber() (int, error) {
	q, ok := h.Handle.(PortQuerier)
	if !ok {
		return NoPort, &DriverError{Op: "port", Err: ErrNoPortQuery}
	}
	return q.PortNumber()
}

func (h *exclusiveHandle) Close() error {
	var err error
	h.once.Do(func() {
		h.closed = true
		err = h.Handle.Close()
		unlock(h.lock)
		h.owner.mutex.Unlock()
	})
	return err
}

type fileLock interface {
	Unlock() error
}

func unlock(l fileLock) {
	if l != nil {
		// best effort, the OS drops the lock with the descriptor anyway
		_ = l.Unlock()
	}
}
