// Package adaptertest provides a recording adapter driver for tests.
package adaptertest

import (
	"fmt"
	"sync"
	"time"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
)

// Clock is a fake clock; Sleep advances it instantly.
type Clock struct {
	mutex sync.Mutex
	now   time.Duration
	slept []time.Duration
}

func (c *Clock) Sleep(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now += d
	c.slept = append(c.slept, d)
}

// Now is the time elapsed since the clock was created.
func (c *Clock) Now() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *Clock) Slept() []time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// Event is one call observed by the Driver.
type Event struct {
	Op   string // "open", "write", "close", "port"
	Mask byte
	Mode adapter.BitMode
	At   time.Duration
}

func (e Event) String() string {
	if e.Op == "write" {
		return fmt.Sprintf("write 0x%02X", e.Mask)
	}
	return e.Op
}

// Driver records every call. Errors are injected through the exported
// fields; WriteErrs is keyed by the zero-based index of the write across
// the driver's lifetime.
type Driver struct {
	Clock *Clock

	OpenErr   error
	WriteErrs map[int]error
	CloseErr  error

	// Port is what PortNumber answers; NoQuery hides PortNumber entirely.
	Port    int
	PortErr error
	NoQuery bool

	mutex  sync.Mutex
	events []Event
	writes int
	live   int
}

func (d *Driver) record(e Event) {
	if d.Clock != nil {
		e.At = d.Clock.Now()
	}
	d.events = append(d.events, e)
}

func (d *Driver) Open() (adapter.Handle, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record(Event{Op: "open"})
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.live++
	h := &handle{driver: d}
	if d.NoQuery {
		return h, nil
	}
	return &queryHandle{h}, nil
}

// Events returns a copy of everything recorded so far.
func (d *Driver) Events() []Event {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]Event(nil), d.events...)
}

// Ops returns the recorded events in their short string form.
func (d *Driver) Ops() []string {
	var ops []string
	for _, e := range d.Events() {
		ops = append(ops, e.String())
	}
	return ops
}

// Writes returns the masks of all successful and failed writes, in order.
func (d *Driver) Writes() []byte {
	var w []byte
	for _, e := range d.Events() {
		if e.Op == "write" {
			w = append(w, e.Mask)
		}
	}
	return w
}

// Live is the number of handles opened and not yet closed.
func (d *Driver) Live() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.live
}

type handle struct {
	driver *Driver
	closed bool
}

func (h *handle) SetBitMode(mask byte, mode adapter.BitMode) error {
	d := h.driver
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if h.closed {
		return &adapter.DriverError{Op: "write", Err: adapter.ErrClosed}
	}
	d.record(Event{Op: "write", Mask: mask, Mode: mode})
	i := d.writes
	d.writes++
	return d.WriteErrs[i]
}

func (h *handle) Close() error {
	d := h.driver
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record(Event{Op: "close"})
	if !h.closed {
		h.closed = true
		d.live--
	}
	return d.CloseErr
}

type queryHandle struct {
	*handle
}

func (h *queryHandle) PortNumber() (int, error) {
	d := h.driver
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record(Event{Op: "port"})
	if d.PortErr != nil {
		return adapter.NoPort, d.PortErr
	}
	return d.Port, nil
}
