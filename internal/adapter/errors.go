package adapter

import (
	"errors"
)

var (
	// ErrDeviceNotFound means no matching adapter is attached, or the adapter
	// has no communication port assigned.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrBusy means another session holds the adapter.
	ErrBusy = errors.New("adapter busy")
	// ErrClosed is returned for writes on a closed handle.
	ErrClosed = errors.New("handle closed")
	// ErrNoPortQuery means the driver cannot tell which port the adapter got.
	ErrNoPortQuery = errors.New("driver cannot query the port number")
)

// DriverError is a failed open, write, close or enumeration call at the
// driver or OS level.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return "adapter: " + e.Op + ": " + e.Err.Error()
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// Wrap turns err into a DriverError for op, leaving ErrDeviceNotFound and
// errors that already are DriverErrors untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDeviceNotFound) {
		return err
	}
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{Op: op, Err: err}
}
