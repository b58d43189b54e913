package ftdi

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
)

const ttyUSBPrefix = "ttyUSB"

// sysfsPortNumber finds the ttyUSB<N> the ftdi_sio driver bound to one of the
// interfaces of the USB device called name, the lowest N when there are
// several. Without sysfs, or without a bound tty, it returns NoPort.
func sysfsPortNumber(root, name string) (int, error) {
	pattern := filepath.Join(root, "bus", "usb", "devices", name+":*", ttyUSBPrefix+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return adapter.NoPort, &adapter.DriverError{Op: "port", Err: err}
	}
	port := adapter.NoPort
	for _, m := range matches {
		n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(m), ttyUSBPrefix))
		if err != nil || n < 0 {
			continue
		}
		if port == adapter.NoPort || n < port {
			port = n
		}
	}
	return port, nil
}
