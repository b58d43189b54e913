// Package locate finds the communication port the flashing tool should use
// for the attached adapter.
package locate

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// Locator resolves the adapter's port name or device node path.
type Locator interface {
	Locate() (string, error)
}

// Strategy names a Locator variant in configuration.
type Strategy string

const (
	StrategyHandle     Strategy = "handle"
	StrategyBusScan    Strategy = "bus-scan"
	StrategyEnumerator Strategy = "enumerator"
	StrategyFixed      Strategy = "fixed"
)

// DefaultPortFormat is how a queried port number becomes a port name.
func DefaultPortFormat() string {
	if runtime.GOOS == "windows" {
		return "COM%d"
	}
	return "/dev/ttyUSB%d"
}

// HandleQueried opens the adapter and asks the driver which port it was
// assigned.
type HandleQueried struct {
	Driver adapter.Driver
	Format string
	Logger *logs.Logger
}

func (l *HandleQueried) Locate() (string, error) {
	var port int
	err := adapter.With(l.Driver, func(h adapter.Handle) error {
		q, ok := h.(adapter.PortQuerier)
		if !ok {
			return &adapter.DriverError{Op: "port", Err: adapter.ErrNoPortQuery}
		}
		var err error
		port, err = q.PortNumber()
		return adapter.Wrap("port", err)
	})
	if err != nil {
		l.Logger.Log("query failed: " + err.Error())
		return "", err
	}
	if port == adapter.NoPort {
		l.Logger.Log("adapter has no port assigned")
		return "", adapter.ErrDeviceNotFound
	}
	format := l.Format
	if format == "" {
		format = DefaultPortFormat()
	}
	loc := fmt.Sprintf(format, port)
	l.Logger.Log("located " + loc)
	return loc, nil
}

// Fixed returns a port given by the operator.
type Fixed struct {
	Port string
}

func (l *Fixed) Locate() (string, error) {
	port := strings.TrimSpace(l.Port)
	if port == "" {
		return "", adapter.ErrDeviceNotFound
	}
	return port, nil
}

// Options configure New.
type Options struct {
	Strategy Strategy
	Driver   adapter.Driver

	// HandleQueried
	PortFormat string
	// BusScan
	SysRoot   string
	DevDir    string
	VendorID  uint16
	ProductID uint16
	// Fixed
	Port string

	Logger *logs.Logger
}

// New builds the Locator for the configured strategy. A non-empty Port always
// wins, the operator knows best.
func New(o Options) (Locator, error) {
	strategy := o.Strategy
	if o.Port != "" {
		strategy = StrategyFixed
	}
	switch strategy {
	case StrategyFixed:
		return &Fixed{Port: o.Port}, nil
	case StrategyHandle:
		if o.Driver == nil {
			return nil, fmt.Errorf("strategy %q needs an adapter driver", strategy)
		}
		return &HandleQueried{Driver: o.Driver, Format: o.PortFormat, Logger: o.Logger}, nil
	case StrategyBusScan, StrategyEnumerator:
		var lister Lister
		if strategy == StrategyBusScan {
			sl := NewSysfsLister(o.Logger)
			if o.SysRoot != "" {
				sl.Root = o.SysRoot
			}
			if o.DevDir != "" {
				sl.DevDir = o.DevDir
			}
			lister = sl
		} else {
			lister = NewEnumeratorLister(o.Logger)
		}
		scan := NewBusScan(lister, o.Logger)
		if o.VendorID != 0 {
			scan.VendorID = o.VendorID
		}
		if o.ProductID != 0 {
			scan.ProductID = o.ProductID
		}
		return scan, nil
	default:
		return nil, fmt.Errorf("unknown locator strategy %q", strategy)
	}
}

// DefaultStrategy is bus scanning where sysfs exists and the portable
// enumerator elsewhere.
func DefaultStrategy() Strategy {
	if runtime.GOOS == "linux" {
		return StrategyBusScan
	}
	return StrategyEnumerator
}
