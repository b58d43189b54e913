// Package ftdi drives an FTDI chip's CBUS bit-bang mode through libusb.
//
// It is the only cgo package of cbusboot; everything above it works on
// adapter.Driver.
package ftdi

import (
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// FTDI vendor requests, see libftdi's ftdi.c
const (
	requestTypeOut = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
	sioSetBitmode  = 0x0B

	// FT232R has a single interface, "A", addressed as index 1
	interfaceA     = 1
	controlTimeout = time.Second
)

// setBitmodeRequest packs one SIO_SET_BITMODE control transfer: the mode in
// the high byte of wValue, the pin mask in the low byte.
func setBitmodeRequest(mask byte, mode adapter.BitMode) (rType, request uint8, value, index uint16) {
	return requestTypeOut, sioSetBitmode, uint16(mode)<<8 | uint16(mask), interfaceA
}

// Driver opens the FTDI chip with the given identity.
type Driver struct {
	VendorID  gousb.ID
	ProductID gousb.ID
	// SysRoot is where sysfs is mounted, used to find the assigned tty.
	SysRoot string
	Logger  *logs.Logger
}

func NewDriver(vendor, product uint16, logger *logs.Logger) *Driver {
	return &Driver{
		VendorID:  gousb.ID(vendor),
		ProductID: gousb.ID(product),
		SysRoot:   "/sys",
		Logger:    logger,
	}
}

func (d *Driver) Open() (adapter.Handle, error) {
	d.Logger.Logf("opening %s:%s", d.VendorID, d.ProductID)
	ctx := gousb.NewContext()

	// returns the first match and closes the rest
	dev, err := ctx.OpenDeviceWithVIDPID(d.VendorID, d.ProductID)
	if err != nil {
		d.Logger.Log("open failed " + err.Error())
		if dev != nil {
			dev.Close()
		}
		ctx.Close()
		return nil, &adapter.DriverError{Op: "open", Err: err}
	}
	if dev == nil {
		d.Logger.Log("no matching device")
		ctx.Close()
		return nil, adapter.ErrDeviceNotFound
	}
	dev.ControlTimeout = controlTimeout

	d.Logger.Logf("opened bus %d address %d", dev.Desc.Bus, dev.Desc.Address)
	return &handle{
		ctx:     ctx,
		dev:     dev,
		sysRoot: d.SysRoot,
		logger:  d.Logger,
	}, nil
}

type handle struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	sysRoot string
	logger  *logs.Logger
	closed  bool
}

func (h *handle) SetBitMode(mask byte, mode adapter.BitMode) error {
	if h.closed {
		return &adapter.DriverError{Op: "write", Err: adapter.ErrClosed}
	}
	h.logger.Logf("set bitmode mode %s mask 0x%02X", mode, mask)
	rType, request, value, index := setBitmodeRequest(mask, mode)
	_, err := h.dev.Control(rType, request, value, index, nil)
	if err != nil {
		return &adapter.DriverError{Op: "write", Err: err}
	}
	return nil
}

func (h *handle) PortNumber() (int, error) {
	if h.closed {
		return adapter.NoPort, &adapter.DriverError{Op: "port", Err: adapter.ErrClosed}
	}
	return sysfsPortNumber(h.sysRoot, sysfsName(h.dev.Desc))
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.logger.Log("closing")
	err := h.dev.Close()
	errCtx := h.ctx.Close()
	if err == nil {
		err = errCtx
	}
	return err
}

// sysfsName is the kernel's name for a device: "<bus>-<port>.<port>...".
func sysfsName(desc *gousb.DeviceDesc) string {
	name := fmt.Sprintf("%d-", desc.Bus)
	for i, p := range desc.Path {
		if i > 0 {
			name += "."
		}
		name += fmt.Sprintf("%d", p)
	}
	return name
}
