package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/BertoldVdb/softi2c/busconfig"
	"github.com/BertoldVdb/softi2c/busserver/busclient"
	"github.com/BertoldVdb/softi2c/busserver/discovery"
	"github.com/BertoldVdb/softi2c/serialfmt"
	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/busopen"
)

// Target is a bus the commands can run on: a local software bus or a
// busserver client.
type Target interface {
	WriteByte(addr uint8, data byte) error
	WriteMultiBytes(addr uint8, data []byte) error
	WriteReg(addr uint8, reg uint8, data byte) error
	ReadByte(addr uint8) (byte, error)
	ReadReg(addr uint8, reg uint8) (byte, error)
	Scan() ([]uint8, error)
	Close() error
}

var _ Target = (*busclient.Client)(nil)
var _ Target = (*localTarget)(nil)

// localTarget runs every transaction through the bus lock so CPU pinning
// applies.
type localTarget struct {
	bus *softi2c.Bus
}

func (l *localTarget) WriteByte(addr uint8, data byte) error {
	return l.bus.Do(func(m *softi2c.Master) error {
		return m.WriteByte(addr, data)
	})
}

func (l *localTarget) WriteMultiBytes(addr uint8, data []byte) error {
	return l.bus.Do(func(m *softi2c.Master) error {
		return m.WriteMultiBytes(addr, data)
	})
}

func (l *localTarget) WriteReg(addr uint8, reg uint8, data byte) error {
	return l.bus.Do(func(m *softi2c.Master) error {
		return m.WriteReg(addr, reg, data)
	})
}

func (l *localTarget) ReadByte(addr uint8) (v byte, err error) {
	err = l.bus.Do(func(m *softi2c.Master) error {
		v, err = m.ReadByte(addr)
		return err
	})
	return
}

func (l *localTarget) ReadReg(addr uint8, reg uint8) (v byte, err error) {
	err = l.bus.Do(func(m *softi2c.Master) error {
		v, err = m.ReadReg(addr, reg)
		return err
	})
	return
}

func (l *localTarget) Scan() (found []uint8, err error) {
	err = l.bus.Do(func(m *softi2c.Master) error {
		found, err = m.Scan()
		return err
	})
	return
}

func (l *localTarget) Close() error {
	return l.bus.Close()
}

type nopClose struct {
	Target
}

func (nopClose) Close() error { return nil }

type session struct {
	Target
	cfg *busconfig.Config
	out io.Writer

	closeOut func() error
}

func (s *session) Close() error {
	err := s.Target.Close()
	if s.closeOut != nil {
		if cerr := s.closeOut(); err == nil {
			err = cerr
		}
	}
	return err
}

// printf writes serial console style output, see serialfmt.Printf.
func (s *session) printf(format string, args ...interface{}) error {
	return serialfmt.Printf(s.out, format, args...)
}

func openTarget(opts *RootOptions, logFunc softi2c.LogFunc) (Target, *busconfig.Config, error) {
	if opts.target != nil {
		return nopClose{opts.target}, nil, nil
	}

	var clientOpts []busclient.Option
	if opts.User != "" {
		clientOpts = append(clientOpts, busclient.WithAuth(opts.User, opts.Password))
	}

	switch {
	case opts.Server != "":
		c, err := busclient.New(opts.Server, clientOpts...)
		return c, nil, err

	case opts.Discover:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r, err := discovery.Discover(ctx, opts.Bus)
		if err != nil {
			return nil, nil, err
		}
		c, err := busclient.New(r.URL(), clientOpts...)
		return c, nil, err

	case opts.Config != "":
		cfg, err := busconfig.Load(opts.Config)
		if err != nil {
			return nil, nil, err
		}
		bus, err := cfg.Open(logFunc)
		if err != nil {
			return nil, nil, err
		}
		return &localTarget{bus: bus}, cfg, nil

	case opts.Bus != "":
		bus, err := busopen.OpenBus(opts.Bus, logFunc)
		if err != nil {
			return nil, nil, err
		}
		if opts.Speed != "" {
			var f physic.Frequency
			if err := f.Set(opts.Speed); err != nil {
				bus.Close()
				return nil, nil, fmt.Errorf("speed: %w", err)
			}
			if err := bus.SetSpeed(f); err != nil {
				bus.Close()
				return nil, nil, err
			}
		}
		return &localTarget{bus: bus}, nil, nil
	}

	return nil, nil, errors.New("no bus selected, use --bus, --config, --server or --discover")
}

func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	var logFunc softi2c.LogFunc
	if opts.Verbose {
		logFunc = log.New(cmd.ErrOrStderr(), "", log.LstdFlags).Printf
	}

	t, cfg, err := openTarget(opts, logFunc)
	if err != nil {
		return nil, err
	}

	s := &session{Target: t, cfg: cfg, out: cmd.OutOrStdout()}

	if opts.Serial != "" {
		port, err := serialfmt.OpenPort(opts.Serial, opts.Baud)
		if err != nil {
			t.Close()
			return nil, err
		}
		s.out = port
		s.closeOut = port.Close
	}

	return s, nil
}

func (s *session) target() Target {
	if n, ok := s.Target.(nopClose); ok {
		return n.Target
	}
	return s.Target
}

func (s *session) local() (*softi2c.Bus, bool) {
	l, ok := s.target().(*localTarget)
	if !ok {
		return nil, false
	}
	return l.bus, true
}

func parseByte(s string, what string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint8(v), nil
}

// addr accepts a number or the name of a device in the configuration.
func (s *session) addr(arg string) (uint8, error) {
	if v, err := strconv.ParseUint(arg, 0, 8); err == nil {
		if v > 0x7f {
			return 0, fmt.Errorf("address 0x%x: %w", v, softi2c.ErrAddress)
		}
		return uint8(v), nil
	}

	if s.cfg != nil {
		if d, ok := s.cfg.Device(arg); ok {
			return d.Address, nil
		}
	}
	return 0, fmt.Errorf("invalid address %q", arg)
}

// device returns the configured device named arg, if any.
func (s *session) device(arg string) (busconfig.Device, bool) {
	if s.cfg == nil {
		return busconfig.Device{}, false
	}
	return s.cfg.Device(arg)
}
