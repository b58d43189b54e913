package locate

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cbusboot/cbusboot-go/internal/logs"
)

var usbTTY = regexp.MustCompile(`^tty(USB|ACM)([0-9]+)$`)

// SysfsLister lists tty devices from sysfs and reads the USB identity of the
// usb_device node each one hangs off.
type SysfsLister struct {
	Root   string // sysfs mount point
	DevDir string // where device nodes live
	Logger *logs.Logger
}

func NewSysfsLister(logger *logs.Logger) *SysfsLister {
	return &SysfsLister{
		Root:   "/sys",
		DevDir: "/dev",
		Logger: logger,
	}
}

func (s *SysfsLister) List() ([]Candidate, error) {
	classDir := filepath.Join(s.Root, "class", "tty")
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if usbTTY.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	// ReadDir sorts as text, ttyUSB10 would come before ttyUSB2
	sort.Slice(names, func(i, j int) bool {
		return ttyLess(names[i], names[j])
	})

	var candidates []Candidate
	for _, name := range names {
		node, err := filepath.EvalSymlinks(filepath.Join(classDir, name))
		if err != nil {
			s.Logger.Log("cannot resolve " + name + ": " + err.Error())
			continue
		}
		vid, pid, ok := s.usbIdentity(node)
		if !ok {
			s.Logger.Log("no usb parent for " + name)
			continue
		}
		candidates = append(candidates, Candidate{
			Path:      filepath.Join(s.DevDir, name),
			VendorID:  vid,
			ProductID: pid,
		})
	}
	return candidates, nil
}

// usbIdentity walks from node up to the first ancestor carrying idVendor and
// idProduct, the usb_device the tty's interface belongs to.
func (s *SysfsLister) usbIdentity(node string) (uint16, uint16, bool) {
	root := filepath.Clean(s.Root)
	for dir := node; dir != root && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		vid, errV := readHexAttr(filepath.Join(dir, "idVendor"))
		pid, errP := readHexAttr(filepath.Join(dir, "idProduct"))
		if errV == nil && errP == nil {
			return vid, pid, true
		}
		if !os.IsNotExist(errV) || !os.IsNotExist(errP) {
			// attribute present but unreadable
			return 0, 0, false
		}
	}
	return 0, 0, false
}

// ttyLess orders tty names by driver prefix, then by number.
func ttyLess(a, b string) bool {
	ma, mb := usbTTY.FindStringSubmatch(a), usbTTY.FindStringSubmatch(b)
	if ma[1] != mb[1] {
		return ma[1] < mb[1]
	}
	na, _ := strconv.Atoi(ma[2])
	nb, _ := strconv.Atoi(mb[2])
	return na < nb
}

func readHexAttr(path string) (uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 16)
	return uint16(v), err
}
