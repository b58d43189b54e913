package core

import (
	"context"
	"errors"
	"sync"

	"github.com/cbusboot/cbusboot-go/internal/locate"
	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// Package with the "core logic" of a flashing run: locate the adapter, put
// the target into its bootloader, hand the port to the programmer and put
// the target back into run mode.
//
// Only one run touches the adapter at a time; a concurrent call fails with
// ErrOtherCall instead of waiting, because the adapter allows a single
// session and the caller (CLI or HTTP client) should learn about it now.

// Bootloader is implemented by session.Session.
type Bootloader interface {
	Enter() error
	Exit() error
}

// Flasher is implemented by flasher.Flasher.
type Flasher interface {
	Flash(ctx context.Context, location, firmware string) error
}

// Policy decides what a flashing run does after a failed phase.
type Policy struct {
	// AbortOnEnterFailure skips the programmer when entering the bootloader
	// failed. The target is still reset into run mode.
	AbortOnEnterFailure bool
}

func DefaultPolicy() Policy {
	return Policy{AbortOnEnterFailure: true}
}

type Phase string

const (
	PhaseLocate Phase = "locate"
	PhaseEnter  Phase = "enter"
	PhaseFlash  Phase = "flash"
	PhaseExit   Phase = "exit"
)

// PhaseError is the first failure of a run.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return string(e.Phase) + ": " + e.Err.Error()
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

var ErrOtherCall = errors.New("other call in progress")

type Core struct {
	locator locate.Locator
	boot    Bootloader
	flasher Flasher
	policy  Policy

	callMutex sync.Mutex // held for a whole operation, never waited on

	stateMutex   sync.Mutex
	lastLocation string
	lastErr      error

	log *logs.Logger
}

func New(l locate.Locator, b Bootloader, f Flasher, p Policy, log *logs.Logger) *Core {
	return &Core{
		locator: l,
		boot:    b,
		flasher: f,
		policy:  p,
		log:     log,
	}
}

func (c *Core) acquire() error {
	if !c.callMutex.TryLock() {
		c.log.Log("refusing, other call in progress")
		return ErrOtherCall
	}
	return nil
}

func (c *Core) release() {
	c.callMutex.Unlock()
}

// Locate resolves the adapter's port.
func (c *Core) Locate() (string, error) {
	if err := c.acquire(); err != nil {
		return "", err
	}
	defer c.release()
	return c.locate()
}

func (c *Core) Enter() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.record(c.phase(PhaseEnter, c.boot.Enter()))
}

func (c *Core) Exit() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.record(c.phase(PhaseExit, c.boot.Exit()))
}

// Flash runs locate, enter, programmer and exit, and returns the located port
// together with the first error. Exit runs whenever enter was attempted.
func (c *Core) Flash(ctx context.Context, firmware string) (string, error) {
	if err := c.acquire(); err != nil {
		return "", err
	}
	defer c.release()

	location, err := c.locate()
	if err != nil {
		return "", err
	}

	var first error
	note := func(err error) {
		if first == nil {
			first = err
		} else if err != nil {
			c.log.Log("dropping later error: " + err.Error())
		}
	}

	note(c.phase(PhaseEnter, c.boot.Enter()))
	if first != nil && c.policy.AbortOnEnterFailure {
		c.log.Log("not flashing, bootloader entry failed")
	} else {
		note(c.phase(PhaseFlash, c.flasher.Flash(ctx, location, firmware)))
	}
	note(c.phase(PhaseExit, c.boot.Exit()))

	return location, c.record(first)
}

// LastLocation is the port found by the most recent successful locate.
func (c *Core) LastLocation() string {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.lastLocation
}

// LastError is the error of the most recent operation, nil after a success.
func (c *Core) LastError() error {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.lastErr
}

func (c *Core) locate() (string, error) {
	location, err := c.locator.Locate()
	if err != nil {
		return "", c.record(c.phase(PhaseLocate, err))
	}
	c.log.Log("adapter at " + location)
	c.stateMutex.Lock()
	c.lastLocation = location
	c.stateMutex.Unlock()
	return location, c.record(nil)
}

func (c *Core) phase(p Phase, err error) error {
	if err == nil {
		c.log.Log(string(p) + " ok")
		return nil
	}
	c.log.Log(string(p) + " failed: " + err.Error())
	return &PhaseError{Phase: p, Err: err}
}

func (c *Core) record(err error) error {
	c.stateMutex.Lock()
	c.lastErr = err
	c.stateMutex.Unlock()
	return err
}
