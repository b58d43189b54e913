// Package session moves a target in and out of its ROM bootloader.
//
// Each operation opens the adapter, runs one fixed pin sequence and closes the
// adapter again. Nothing is read back from the target: the adapter cannot see
// its state, so both operations trust the writes.
package session

import (
	"time"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/cbus"
	"github.com/cbusboot/cbusboot-go/internal/logs"
	"github.com/cbusboot/cbusboot-go/internal/sequence"
)

type Session struct {
	driver adapter.Driver
	pins   cbus.PinMap
	settle time.Duration
	sleep  sequence.Sleeper
	logger *logs.Logger
}

type Option func(*Session)

// WithSettle overrides sequence.DefaultSettle. Shorter values are ignored.
func WithSettle(d time.Duration) Option {
	return func(s *Session) {
		if d >= sequence.DefaultSettle {
			s.settle = d
		}
	}
}

// WithSleeper replaces time.Sleep, for tests.
func WithSleeper(sleep sequence.Sleeper) Option {
	return func(s *Session) {
		s.sleep = sleep
	}
}

func WithLogger(l *logs.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New validates the pin map and returns a session over d.
func New(d adapter.Driver, pins cbus.PinMap, opts ...Option) (*Session, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		driver: d,
		pins:   pins,
		settle: sequence.DefaultSettle,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Enter resets the target into its ROM bootloader. Running it again while the
// target is already there repeats the same pin states.
func (s *Session) Enter() error {
	s.logger.Log("entering bootloader")
	return s.run(sequence.Enter(s.pins, s.settle))
}

// Exit resets the target into its flash program and releases both lines.
func (s *Session) Exit() error {
	s.logger.Log("exiting bootloader")
	return s.run(sequence.Exit(s.pins, s.settle))
}

func (s *Session) run(steps []sequence.Step) error {
	err := adapter.With(s.driver, func(h adapter.Handle) error {
		return sequence.Drive(h, steps, s.sleep, s.logger)
	})
	if err != nil {
		s.logger.Log("failed: " + err.Error())
		return err
	}
	s.logger.Log("done")
	return nil
}
