// Package config loads cbusboot's optional YAML configuration file.
//
// Every field has a default that matches an FT232R board with BOOT0 on CBUS2
// and RESET on CBUS3, so running without a file works for the common wiring.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/cbus"
	"github.com/cbusboot/cbusboot-go/internal/flasher"
	"github.com/cbusboot/cbusboot-go/internal/locate"
	"github.com/cbusboot/cbusboot-go/internal/sequence"
)

type Config struct {
	Adapter    Adapter    `yaml:"adapter"`
	Pins       Pins       `yaml:"pins"`
	Settle     Duration   `yaml:"settle"`
	Locator    Locator    `yaml:"locator"`
	Programmer Programmer `yaml:"programmer"`
	Policy     Policy     `yaml:"policy"`
	Server     Server     `yaml:"server"`
}

type Adapter struct {
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
	// LockFile guards the adapter across processes; "-" disables it.
	LockFile string `yaml:"lock_file"`
}

// Pins selects a named profile, or a custom wiring when Boot0 and Reset are
// both set.
type Pins struct {
	Profile string `yaml:"profile"`
	Boot0   *uint8 `yaml:"boot0"`
	Reset   *uint8 `yaml:"reset"`
}

type Locator struct {
	Strategy   locate.Strategy `yaml:"strategy"`
	Port       string          `yaml:"port"`
	PortFormat string          `yaml:"port_format"`
	SysRoot    string          `yaml:"sys_root"`
	DevDir     string          `yaml:"dev_dir"`
}

type Programmer struct {
	Path      string   `yaml:"path"`
	Address   uint32   `yaml:"address"`
	Verify    *bool    `yaml:"verify"`
	ExtraArgs []string `yaml:"extra_args"`
}

type Policy struct {
	AbortOnEnterFailure *bool `yaml:"abort_on_enter_failure"`
}

type Server struct {
	Listen string `yaml:"listen"`
}

// Duration accepts "2ms" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

const DefaultListen = "127.0.0.1:21330"

func Default() *Config {
	verify := true
	abort := true
	return &Config{
		Adapter: Adapter{
			VendorID:  adapter.VendorFTDI,
			ProductID: adapter.ProductFT232R,
			LockFile:  adapter.DefaultLockPath,
		},
		Pins:   Pins{Profile: cbus.DefaultProfile},
		Settle: Duration(sequence.DefaultSettle),
		Locator: Locator{
			Strategy:   locate.DefaultStrategy(),
			PortFormat: locate.DefaultPortFormat(),
		},
		Programmer: Programmer{
			Path:    flasher.DefaultProgram(),
			Address: flasher.DefaultAddress,
			Verify:  &verify,
		},
		Policy: Policy{AbortOnEnterFailure: &abort},
		Server: Server{Listen: DefaultListen},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Parse(data, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes data into c, keeping c's values for missing keys.
func Parse(data []byte, c *Config) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if _, err := c.PinMap(); err != nil {
		return err
	}
	if time.Duration(c.Settle) < sequence.DefaultSettle {
		return fmt.Errorf("settle %s is below the %s minimum", time.Duration(c.Settle), sequence.DefaultSettle)
	}
	switch c.Locator.Strategy {
	case locate.StrategyHandle, locate.StrategyBusScan, locate.StrategyEnumerator:
	case locate.StrategyFixed:
		if c.Locator.Port == "" {
			return errors.New("locator strategy fixed needs a port")
		}
	default:
		return fmt.Errorf("unknown locator strategy %q", c.Locator.Strategy)
	}
	if c.Programmer.Path == "" {
		return errors.New("programmer path is empty")
	}
	return nil
}

// PinMap resolves the pin section into a validated wiring.
func (c *Config) PinMap() (cbus.PinMap, error) {
	p := c.Pins
	if p.Boot0 != nil || p.Reset != nil {
		if p.Boot0 == nil || p.Reset == nil {
			return cbus.PinMap{}, errors.New("custom pins need both boot0 and reset")
		}
		m := cbus.PinMap{Boot0: cbus.Line(*p.Boot0), Reset: cbus.Line(*p.Reset)}
		for l := cbus.Line(0); l < cbus.LineCount; l++ {
			if l != m.Boot0 && l != m.Reset {
				m.Unused = append(m.Unused, l)
			}
		}
		return m, m.Validate()
	}
	m, err := cbus.Profile(p.Profile)
	if err != nil {
		return cbus.PinMap{}, err
	}
	return m, m.Validate()
}

// LockPath returns the lock file to use, empty when disabled.
func (c *Config) LockPath() string {
	if c.Adapter.LockFile == "-" {
		return ""
	}
	return c.Adapter.LockFile
}

func (c *Config) Verify() bool {
	return c.Programmer.Verify == nil || *c.Programmer.Verify
}

func (c *Config) AbortOnEnterFailure() bool {
	return c.Policy.AbortOnEnterFailure == nil || *c.Policy.AbortOnEnterFailure
}
