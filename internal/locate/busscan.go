package locate

import (
	"fmt"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// Candidate is a serial port found on the bus.
type Candidate struct {
	Path      string
	VendorID  uint16
	ProductID uint16
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s (%04x:%04x)", c.Path, c.VendorID, c.ProductID)
}

// Lister enumerates USB-backed serial ports in bus order.
type Lister interface {
	List() ([]Candidate, error)
}

// BusScan picks the first listed port whose USB identity matches. It never
// opens the adapter.
type BusScan struct {
	Lister    Lister
	VendorID  uint16
	ProductID uint16
	Logger    *logs.Logger
}

func NewBusScan(lister Lister, logger *logs.Logger) *BusScan {
	return &BusScan{
		Lister:    lister,
		VendorID:  adapter.VendorFTDI,
		ProductID: adapter.ProductFT232R,
		Logger:    logger,
	}
}

func (l *BusScan) Locate() (string, error) {
	candidates, err := l.Lister.List()
	if err != nil {
		l.Logger.Log("listing failed: " + err.Error())
		return "", adapter.Wrap("enumerate", err)
	}
	for _, c := range candidates {
		if c.VendorID == l.VendorID && c.ProductID == l.ProductID {
			l.Logger.Log("matched " + c.String())
			return c.Path, nil
		}
		l.Logger.Log("skipping " + c.String())
	}
	return "", adapter.ErrDeviceNotFound
}
