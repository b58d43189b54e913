package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/adapter/adaptertest"
	"github.com/cbusboot/cbusboot-go/internal/cbus"
	"github.com/cbusboot/cbusboot-go/internal/logs"
	"github.com/cbusboot/cbusboot-go/internal/sequence"
)

func newSession(t *testing.T, d *adaptertest.Driver, opts ...Option) *Session {
	t.Helper()
	if d.Clock == nil {
		d.Clock = &adaptertest.Clock{}
	}
	opts = append([]Option{WithSleeper(d.Clock.Sleep)}, opts...)
	s, err := New(d, cbus.Profiles[cbus.DefaultProfile], opts...)
	require.NoError(t, err)
	return s
}

func TestEnterThenExit(t *testing.T) {
	d := &adaptertest.Driver{}
	s := newSession(t, d)

	require.NoError(t, s.Enter())
	require.NoError(t, s.Exit())

	assert.Equal(t, []string{
		"open", "write 0xC0", "write 0xC4", "write 0xCC", "close",
		"open", "write 0xC8", "write 0xC0", "write 0xC8", "write 0x00", "close",
	}, d.Ops())
	assert.Zero(t, d.Live())

	pins := cbus.Profiles[cbus.DefaultProfile]
	final := cbus.PinState(d.Writes()[len(d.Writes())-1])
	assert.False(t, final.Output(pins.Boot0))
	assert.False(t, final.Output(pins.Reset))
}

func TestEnterIsRepeatable(t *testing.T) {
	d := &adaptertest.Driver{}
	s := newSession(t, d)

	require.NoError(t, s.Enter())
	first := d.Writes()
	require.NoError(t, s.Enter())
	assert.Equal(t, append(first, first...), d.Writes())

	final := cbus.PinState(first[len(first)-1])
	assert.Equal(t, gpio.High, final.Level(cbus.Profiles[cbus.DefaultProfile].Boot0))
}

func TestEnterOpenFailure(t *testing.T) {
	d := &adaptertest.Driver{OpenErr: adapter.ErrDeviceNotFound}
	s := newSession(t, d)
	assert.Equal(t, adapter.ErrDeviceNotFound, s.Enter())
	assert.Empty(t, d.Writes())
}

func TestEnterSecondWriteFails(t *testing.T) {
	d := &adaptertest.Driver{WriteErrs: map[int]error{1: errors.New("FT_IO_ERROR")}}
	s := newSession(t, d)

	err := s.Enter()
	assert.ErrorAs(t, err, new(*adapter.DriverError))
	assert.Equal(t, []string{"open", "write 0xC0", "write 0xC4", "close"}, d.Ops())
	assert.Zero(t, d.Live())
}

func TestWriteErrorWinsOverCloseError(t *testing.T) {
	writeErr := errors.New("write failed")
	d := &adaptertest.Driver{
		WriteErrs: map[int]error{0: writeErr},
		CloseErr:  errors.New("close failed"),
	}
	s := newSession(t, d)

	err := s.Exit()
	assert.ErrorIs(t, err, writeErr)
}

func TestCloseErrorReported(t *testing.T) {
	closeErr := errors.New("close failed")
	d := &adaptertest.Driver{CloseErr: closeErr}
	s := newSession(t, d)

	err := s.Exit()
	assert.ErrorIs(t, err, closeErr)
	assert.Len(t, d.Writes(), 4)
}

func TestSettleOption(t *testing.T) {
	d := &adaptertest.Driver{}
	s := newSession(t, d, WithSettle(5*time.Millisecond))
	require.NoError(t, s.Enter())
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, d.Clock.Slept())

	d = &adaptertest.Driver{}
	s = newSession(t, d, WithSettle(time.Microsecond))
	require.NoError(t, s.Enter())
	assert.Equal(t, []time.Duration{sequence.DefaultSettle, sequence.DefaultSettle}, d.Clock.Slept())
}

func TestNewRejectsBadPinMap(t *testing.T) {
	_, err := New(&adaptertest.Driver{}, cbus.PinMap{Boot0: 1, Reset: 1})
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	d := &adaptertest.Driver{}
	s := newSession(t, d, WithLogger(logs.New(&buf)))
	require.NoError(t, s.Enter())
	assert.Contains(t, buf.String(), "entering bootloader")
	assert.Contains(t, buf.String(), "step 3/3: 0xCC")
}
