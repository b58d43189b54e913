//go:build unix

package adapter

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

type flock struct {
	f *os.File
}

// tryLockFile takes a non-blocking exclusive flock on path, so a second
// cbusboot process fails instead of hanging on the adapter.
func tryLockFile(path string) (fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrBusy
		}
		return nil, err
	}
	return &flock{f: f}, nil
}

func (l *flock) Unlock() error {
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	errClose := l.f.Close()
	if err != nil {
		return err
	}
	return errClose
}
