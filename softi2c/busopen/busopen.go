// Package busopen opens a software bus from a path string:
//
//	periph:<scl>:<sda>[:<delay>]               two host GPIOs by periph name
//	mcp2221a:<serial>:<sclGP>:<sdaGP>[:<delay>] two GP pins of an MCP2221A
//	sim:<addr>[,<addr>...]                      simulated lines with register devices
//
// delay is the half-bit loop count.
package busopen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/busopen/mcp2221a"
	"github.com/BertoldVdb/softi2c/softi2c/i2csim"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func getPart(parts []string, index int, def string) string {
	if index >= len(parts) || parts[index] == "" {
		return def
	}
	return parts[index]
}

func parseDelay(parts []string, index int) (int, error) {
	units, err := strconv.Atoi(getPart(parts, index, strconv.Itoa(softi2c.DefaultDelayUnits)))
	if err != nil {
		return 0, fmt.Errorf("invalid delay: %v", err)
	}
	if units <= 0 {
		return 0, fmt.Errorf("invalid delay: %d", units)
	}
	return units, nil
}

func OpenPlatform(scl, sda string, delayUnits int, logFunc softi2c.LogFunc) (*softi2c.Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %v", err)
	}

	sclPin := gpioreg.ByName(scl)
	if sclPin == nil {
		return nil, fmt.Errorf("clock gpio %q not found", scl)
	}
	sdaPin := gpioreg.ByName(sda)
	if sdaPin == nil {
		return nil, fmt.Errorf("data gpio %q not found", sda)
	}

	lines, err := softi2c.NewPinLines(sclPin, sdaPin)
	if err != nil {
		return nil, fmt.Errorf("could not set up pins: %v", err)
	}

	m := softi2c.New(lines, softi2c.Config{DelayUnits: delayUnits, Log: logFunc})
	return softi2c.NewBus(m, "periph-"+scl+"-"+sda, nil), nil
}

func OpenUSB(serial string, scl, sda byte, delayUnits int, logFunc softi2c.LogFunc) (*softi2c.Bus, error) {
	dev, err := mcp2221a.Open(serial)
	if err != nil {
		return nil, err
	}

	lines, err := mcp2221a.NewLines(dev, scl, sda)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to initialize bus via USB: %v", err)
	}

	m := softi2c.New(lines, softi2c.Config{DelayUnits: delayUnits, Log: logFunc})
	return softi2c.NewBus(m, fmt.Sprintf("mcp2221a-%s-GP%d-GP%d", dev.Serial, scl, sda), dev), nil
}

// OpenSim returns a bus on simulated lines with a register device at every
// address in addrs. The lines need no delay.
func OpenSim(addrs []uint8, logFunc softi2c.LogFunc) (*softi2c.Bus, *i2csim.Wire) {
	wire := i2csim.NewWire()
	for _, addr := range addrs {
		wire.Attach(addr, &i2csim.Registers{})
	}

	m := softi2c.New(wire, softi2c.Config{Delay: softi2c.NoDelay, Log: logFunc})
	return softi2c.NewBus(m, "sim", nil), wire
}

func parseAddrs(list string) ([]uint8, error) {
	var addrs []uint8
	for _, s := range strings.Split(list, ",") {
		if s == "" {
			continue
		}
		addr, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, err
		}
		if addr > 0x7f {
			return nil, fmt.Errorf("address 0x%x: %w", addr, softi2c.ErrAddress)
		}
		addrs = append(addrs, uint8(addr))
	}
	return addrs, nil
}

func parsePin(s string) (byte, error) {
	pin, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(s), "GP"), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid pin %q", s)
	}
	if pin >= mcp2221a.GPPinCount {
		return 0, fmt.Errorf("pin %q out of range", s)
	}
	return byte(pin), nil
}

func OpenBus(path string, logFunc softi2c.LogFunc) (*softi2c.Bus, error) {
	parts := strings.Split(path, ":")

	switch parts[0] {
	case "periph":
		if len(parts) < 3 {
			return nil, errors.New("periph bus needs clock and data pin names")
		}
		delayUnits, err := parseDelay(parts, 3)
		if err != nil {
			return nil, err
		}
		return OpenPlatform(parts[1], parts[2], delayUnits, logFunc)

	case "mcp2221a":
		scl, err := parsePin(getPart(parts, 2, "GP0"))
		if err != nil {
			return nil, err
		}
		sda, err := parsePin(getPart(parts, 3, "GP1"))
		if err != nil {
			return nil, err
		}
		delayUnits, err := parseDelay(parts, 4)
		if err != nil {
			return nil, err
		}
		return OpenUSB(getPart(parts, 1, ""), scl, sda, delayUnits, logFunc)

	case "sim":
		addrs, err := parseAddrs(getPart(parts, 1, ""))
		if err != nil {
			return nil, err
		}
		bus, _ := OpenSim(addrs, logFunc)
		return bus, nil
	}

	return nil, errors.New("bus type not supported, use 'periph', 'mcp2221a' or 'sim'")
}
