package cbus

import (
	"errors"
	"fmt"
	"sort"

	"periph.io/x/conn/v3/gpio"
)

// PinMap says which CBUS line is wired to the target's BOOT0 pin and which to
// its active-low RESET pin. The wiring differs between adapter boards and is
// always supplied by configuration.
type PinMap struct {
	Boot0  Line
	Reset  Line
	Unused []Line
}

const DefaultProfile = "ft232r"

// Profiles are the known board wirings.
var Profiles = map[string]PinMap{
	// CBUS0, CBUS1 unused; CBUS2 -> BOOT0; CBUS3 -> RESET
	"ft232r": {Boot0: 2, Reset: 3, Unused: []Line{0, 1}},
	// boards routing the lower pair: CBUS0 -> BOOT0; CBUS1 -> RESET
	"ft232r-cbus01": {Boot0: 0, Reset: 1, Unused: []Line{2, 3}},
}

var ErrUnknownProfile = errors.New("unknown pin profile")

// Profile returns a copy of the named wiring.
func Profile(name string) (PinMap, error) {
	p, ok := Profiles[name]
	if !ok {
		return PinMap{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownProfile, name, ProfileNames())
	}
	p.Unused = append([]Line(nil), p.Unused...)
	return p, nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for n := range Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m PinMap) Validate() error {
	if !m.Boot0.Valid() {
		return fmt.Errorf("boot0 line %d out of range 0-%d", m.Boot0, LineCount-1)
	}
	if !m.Reset.Valid() {
		return fmt.Errorf("reset line %d out of range 0-%d", m.Reset, LineCount-1)
	}
	if m.Boot0 == m.Reset {
		return fmt.Errorf("boot0 and reset share %s", m.Boot0)
	}
	for _, u := range m.Unused {
		if !u.Valid() {
			return fmt.Errorf("unused line %d out of range 0-%d", u, LineCount-1)
		}
		if u == m.Boot0 || u == m.Reset {
			return fmt.Errorf("%s is both used and unused", u)
		}
	}
	return nil
}

// Drive returns the state with both BOOT0 and RESET as outputs at the given
// levels and every other line as an input.
func (m PinMap) Drive(boot0, reset gpio.Level) PinState {
	return PinState(0).with(m.Boot0, boot0).with(m.Reset, reset)
}

// Release returns the state with every line, BOOT0 and RESET included, as an
// input.
func (m PinMap) Release() PinState {
	return PinState(0)
}
