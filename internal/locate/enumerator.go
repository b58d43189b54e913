package locate

import (
	"strconv"

	"go.bug.st/serial/enumerator"

	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// EnumeratorLister lists ports through the OS serial enumeration APIs
// (SetupAPI, IOKit, sysfs), for hosts where SysfsLister cannot work.
type EnumeratorLister struct {
	Ports  func() ([]*enumerator.PortDetails, error)
	Logger *logs.Logger
}

func NewEnumeratorLister(logger *logs.Logger) *EnumeratorLister {
	return &EnumeratorLister{
		Ports:  enumerator.GetDetailedPortsList,
		Logger: logger,
	}
}

func (e *EnumeratorLister) List() ([]Candidate, error) {
	ports, err := e.Ports()
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		vid, errV := strconv.ParseUint(p.VID, 16, 16)
		pid, errP := strconv.ParseUint(p.PID, 16, 16)
		if errV != nil || errP != nil {
			e.Logger.Logf("bad usb id %q:%q on %s", p.VID, p.PID, p.Name)
			continue
		}
		candidates = append(candidates, Candidate{
			Path:      p.Name,
			VendorID:  uint16(vid),
			ProductID: uint16(pid),
		})
	}
	return candidates, nil
}
