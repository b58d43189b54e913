// Package sequence drives BOOT0 and RESET through timed CBUS writes.
//
// The target latches BOOT0 on the rising edge of RESET, so BOOT0 has to be
// stable before RESET goes high. Every step but the last is followed by its
// hold time to let the lines and any RC network between adapter and target
// settle.
package sequence

import (
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/cbus"
	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// DefaultSettle is the minimum time between two transitions.
const DefaultSettle = 2000 * time.Microsecond

// Step is one write followed by a hold time.
type Step struct {
	State cbus.PinState
	Hold  time.Duration
}

// Sleeper blocks for d. time.Sleep in production.
type Sleeper func(d time.Duration)

// Drive writes steps in order. It stops at the first failed write; closing
// the handle is left to the caller.
func Drive(h adapter.Handle, steps []Step, sleep Sleeper, logger *logs.Logger) error {
	if sleep == nil {
		sleep = time.Sleep
	}
	for i, s := range steps {
		logger.Logf("step %d/%d: %s", i+1, len(steps), s.State)
		if err := h.SetBitMode(byte(s.State), adapter.BitModeCBUS); err != nil {
			logger.Log("write failed, aborting sequence: " + err.Error())
			return adapter.Wrap("write", err)
		}
		if i < len(steps)-1 && s.Hold > 0 {
			sleep(s.Hold)
		}
	}
	return nil
}

// Enter holds the target in reset, raises BOOT0, then releases reset so the
// target starts its ROM bootloader.
func Enter(m cbus.PinMap, settle time.Duration) []Step {
	return withSettle(settle,
		m.Drive(gpio.Low, gpio.Low),
		m.Drive(gpio.High, gpio.Low),
		m.Drive(gpio.High, gpio.High),
	)
}

// Exit resets the target with BOOT0 low so it runs from flash, then hands
// both lines back as inputs.
func Exit(m cbus.PinMap, settle time.Duration) []Step {
	return withSettle(settle,
		m.Drive(gpio.Low, gpio.High),
		m.Drive(gpio.Low, gpio.Low),
		m.Drive(gpio.Low, gpio.High),
		m.Release(),
	)
}

func withSettle(settle time.Duration, states ...cbus.PinState) []Step {
	steps := make([]Step, len(states))
	for i, s := range states {
		steps[i] = Step{State: s}
		if i < len(states)-1 {
			steps[i].Hold = settle
		}
	}
	return steps
}
