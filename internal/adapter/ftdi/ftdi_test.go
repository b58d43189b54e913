package ftdi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
)

func TestSetBitmodeRequest(t *testing.T) {
	testcases := []struct {
		mask  byte
		mode  adapter.BitMode
		value uint16
	}{
		{0xCC, adapter.BitModeCBUS, 0x20CC},
		{0xC8, adapter.BitModeCBUS, 0x20C8},
		{0x00, adapter.BitModeCBUS, 0x2000},
		{0x00, 0x00, 0x0000},
	}
	for _, tc := range testcases {
		rType, request, value, index := setBitmodeRequest(tc.mask, tc.mode)
		assert.Equal(t, uint8(0x40), rType, "%#02x", tc.mask)
		assert.Equal(t, uint8(0x0B), request, "%#02x", tc.mask)
		assert.Equal(t, tc.value, value, "%#02x", tc.mask)
		assert.Equal(t, uint16(1), index, "%#02x", tc.mask)
	}
}

func TestSysfsPortNumber(t *testing.T) {
	root := t.TempDir()
	devices := filepath.Join(root, "bus", "usb", "devices")
	require.NoError(t, os.MkdirAll(filepath.Join(devices, "1-1.4:1.0", "ttyUSB3"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(devices, "1-2:1.0", "ttyUSB0"), 0o755))

	n, err := sysfsPortNumber(root, "1-1.4")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = sysfsPortNumber(root, "2-1")
	require.NoError(t, err)
	assert.Equal(t, adapter.NoPort, n)
}

func TestSysfsPortNumberLowestNumeric(t *testing.T) {
	root := t.TempDir()
	devices := filepath.Join(root, "bus", "usb", "devices")
	require.NoError(t, os.MkdirAll(filepath.Join(devices, "1-3:1.0", "ttyUSB10"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(devices, "1-3:1.1", "ttyUSB9"), 0o755))

	n, err := sysfsPortNumber(root, "1-3")
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestSysfsName(t *testing.T) {
	assert.Equal(t, "1-1.4", sysfsName(&gousb.DeviceDesc{Bus: 1, Path: []int{1, 4}}))
	assert.Equal(t, "3-2", sysfsName(&gousb.DeviceDesc{Bus: 3, Path: []int{2}}))
}
