// Package adapter wraps the USB-to-serial chip whose CBUS lines drive the
// target's BOOT0 and RESET pins.
//
// The chip exposes a single bit-bang session, so a Handle is opened right
// before a group of writes and closed right after it. With does exactly that
// and is the only way the rest of cbusboot touches a Driver. The libusb
// implementation lives in adapter/ftdi.
package adapter

import (
	"fmt"
)

// Known adapter identity (FTDI FT232R).
const (
	VendorFTDI    = 0x0403
	ProductFT232R = 0x6001
)

// BitMode is the mode argument of the chip's set-bit-mode request.
type BitMode byte

// BitModeCBUS selects CBUS bit-bang; the mask is [dir3..dir0|lvl3..lvl0].
const BitModeCBUS BitMode = 0x20

// Driver opens the attached adapter.
type Driver interface {
	Open() (Handle, error)
}

// Handle is one open session with the adapter.
type Handle interface {
	// SetBitMode writes mask in the given bit-bang mode.
	SetBitMode(mask byte, mode BitMode) error
	Close() error
}

// PortQuerier is implemented by handles that know which communication port the
// operating system assigned to the adapter. PortNumber returns -1 when no port
// is assigned.
type PortQuerier interface {
	PortNumber() (int, error)
}

// NoPort is the PortNumber result for an adapter without an assigned port.
const NoPort = -1

// With opens a handle from d, runs fn with it and closes it on every path.
// The first error wins; a close error is returned only when nothing failed
// before it.
func With(d Driver, fn func(Handle) error) (err error) {
	h, err := d.Open()
	if err != nil {
		return Wrap("open", err)
	}
	defer func() {
		errClose := h.Close()
		if errClose != nil && err == nil {
			err = Wrap("close", errClose)
		}
	}()
	return fn(h)
}

func (m BitMode) String() string {
	switch m {
	case BitModeCBUS:
		return "cbus"
	default:
		return fmt.Sprintf("0x%02X", byte(m))
	}
}
