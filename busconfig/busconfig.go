// Package busconfig loads the YAML file shared by the command line tools. It
// names the bus, its timing and the devices expected on it.
package busconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/busopen"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

type Kind string

const (
	KindRegisters Kind = "registers"
	KindSpeech    Kind = "xfs5152ce"
	KindSegment   Kind = "segment"
)

type Device struct {
	Name    string `yaml:"name"`
	Address uint8  `yaml:"address"`
	Kind    Kind   `yaml:"kind,omitempty"`

	// Polarity applies to segment displays: "anode" or "cathode".
	Polarity string `yaml:"polarity,omitempty"`
}

type Server struct {
	Addr     string `yaml:"addr,omitempty"`
	Announce bool   `yaml:"announce,omitempty"`
	Iface    string `yaml:"iface,omitempty"`
}

type Config struct {
	// Bus is a busopen path, e.g. periph:GPIO5:GPIO6.
	Bus string `yaml:"bus"`
	// Speed, e.g. "100kHz", replaces the loop delay with a timed one.
	Speed      string `yaml:"speed,omitempty"`
	DelayUnits int    `yaml:"delay_units,omitempty"`
	// CPU pins bus transactions to one core; -1 or unset disables.
	CPU *int `yaml:"cpu,omitempty"`

	Devices []Device `yaml:"devices,omitempty"`
	Server  Server   `yaml:"server,omitempty"`

	speed physic.Frequency
}

const DefaultServerAddr = ":8421"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Bus == "" {
		return errors.New("bus is required")
	}

	if c.Speed != "" {
		if err := c.speed.Set(c.Speed); err != nil {
			return fmt.Errorf("speed: %w", err)
		}
		if c.speed <= 0 {
			return fmt.Errorf("speed must be positive: %s", c.Speed)
		}
	}

	if c.DelayUnits < 0 {
		return fmt.Errorf("delay_units must not be negative: %d", c.DelayUnits)
	}

	names := make(map[string]bool)
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if names[d.Name] {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name)
		}
		names[d.Name] = true

		if d.Address > 0x7f {
			return fmt.Errorf("devices[%d]: address 0x%x: %w", i, d.Address, softi2c.ErrAddress)
		}

		switch d.Kind {
		case "", KindRegisters, KindSpeech, KindSegment:
		default:
			return fmt.Errorf("devices[%d]: unknown kind %q", i, d.Kind)
		}
	}

	return nil
}

// SpeedHz returns the configured speed, or 0 if none is set.
func (c *Config) SpeedHz() physic.Frequency {
	return c.speed
}

func (c *Config) PinnedCPU() int {
	if c.CPU == nil {
		return -1
	}
	return *c.CPU
}

// Device looks up a device by name.
func (c *Config) Device(name string) (Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// Open opens the configured bus and applies speed and CPU pinning.
func (c *Config) Open(logFunc softi2c.LogFunc) (*softi2c.Bus, error) {
	bus, err := busopen.OpenBus(c.busPath(), logFunc)
	if err != nil {
		return nil, err
	}

	if c.speed > 0 {
		if err := bus.SetSpeed(c.speed); err != nil {
			bus.Close()
			return nil, err
		}
	}
	bus.PinCPU(c.PinnedCPU())

	return bus, nil
}

// busPath appends delay_units to paths that take a delay and have none.
// Omitted mcp2221a pins are filled in with their defaults first.
func (c *Config) busPath() string {
	if c.DelayUnits == 0 {
		return c.Bus
	}

	parts := strings.Split(c.Bus, ":")
	switch parts[0] {
	case "periph":
		if len(parts) != 3 {
			return c.Bus
		}

	case "mcp2221a":
		if len(parts) > 4 {
			return c.Bus
		}
		defaults := []string{"mcp2221a", "", "GP0", "GP1"}
		for i := range parts {
			if parts[i] != "" {
				defaults[i] = parts[i]
			}
		}
		parts = defaults

	default:
		return c.Bus
	}

	return fmt.Sprintf("%s:%d", strings.Join(parts, ":"), c.DelayUnits)
}
