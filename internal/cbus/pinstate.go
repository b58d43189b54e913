// Package cbus models the single configuration byte written to an FTDI chip
// in CBUS bit-bang mode and the mapping of the target's BOOT0 and RESET pins
// onto CBUS lines.
//
// The byte layout is
//
//	bit 7 6 5 4 | 3 2 1 0
//	    direction | level
//
// with one bit per CBUS line in each nybble (line 0 is bit 4 / bit 0). A
// direction bit of 1 makes the line an output; its level bit then selects
// high (1) or low (0). The level bit of an input line carries no meaning.
package cbus

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
)

// LineCount is the number of CBUS lines addressable through bit-bang mode.
const LineCount = 4

// Line is a CBUS line number, 0 to 3.
type Line uint8

func (l Line) Valid() bool {
	return l < LineCount
}

func (l Line) String() string {
	return fmt.Sprintf("CBUS%d", uint8(l))
}

func (l Line) dirBit() byte {
	return 1 << (uint(l) + LineCount)
}

func (l Line) levelBit() byte {
	return 1 << uint(l)
}

// PinState is the byte handed to the adapter's set-bit-mode call.
type PinState byte

// Output reports whether l is configured as an output.
func (s PinState) Output(l Line) bool {
	return byte(s)&l.dirBit() != 0
}

// Level returns the level driven on l. Input lines always read as Low.
func (s PinState) Level(l Line) gpio.Level {
	if !s.Output(l) {
		return gpio.Low
	}
	return gpio.Level(byte(s)&l.levelBit() != 0)
}

func (s PinState) with(l Line, level gpio.Level) PinState {
	b := byte(s) | l.dirBit()
	if level {
		b |= l.levelBit()
	} else {
		b &^= l.levelBit()
	}
	return PinState(b)
}

func (s PinState) String() string {
	var parts []string
	for l := Line(0); l < LineCount; l++ {
		if s.Output(l) {
			parts = append(parts, fmt.Sprintf("%s=%s", l, s.Level(l)))
		} else {
			parts = append(parts, fmt.Sprintf("%s=in", l))
		}
	}
	return fmt.Sprintf("0x%02X (%s)", byte(s), strings.Join(parts, " "))
}
