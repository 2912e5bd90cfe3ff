package softi2c

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// Bus exposes a Master as a periph i2c.BusCloser and as a tinygo drivers.I2C,
// so existing device drivers can run on top of it. Unlike Master it is safe
// for concurrent use.
type Bus struct {
	mutex  sync.Mutex
	m      *Master
	name   string
	closer io.Closer
	cpu    int
}

var _ i2c.BusCloser = (*Bus)(nil)
var _ drivers.I2C = (*Bus)(nil)

// NewBus wraps m. closer, if not nil, is closed together with the bus.
func NewBus(m *Master, name string, closer io.Closer) *Bus {
	return &Bus{
		m:      m,
		name:   name,
		closer: closer,
		cpu:    -1,
	}
}

// PinCPU makes every transaction run on a locked OS thread restricted to cpu.
// A negative value only locks the thread.
func (b *Bus) PinCPU(cpu int) {
	b.mutex.Lock()
	b.cpu = cpu
	b.mutex.Unlock()
}

func (b *Bus) Master() *Master {
	return b.m
}

// Do runs fn with exclusive access to the master.
func (b *Bus) Do(fn func(m *Master) error) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	unlock, err := LockThread(b.cpu)
	if err != nil {
		return err
	}
	defer unlock()

	return fn(b.m)
}

// Tx maps a write/read pair onto one of the master's transactions. Supported
// shapes are write-only, a single byte read, and one register byte followed by
// a single byte read.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return fmt.Errorf("%s: address 0x%x: %w", b.name, addr, ErrAddress)
	}
	a := uint8(addr)

	return b.Do(func(m *Master) error {
		switch {
		case len(r) == 0 && len(w) == 0:
			ok, err := m.Probe(a)
			if err == nil && !ok {
				err = fmt.Errorf("address 0x%02x: %w", a, ErrNoAck)
			}
			return err

		case len(r) == 0:
			return m.WriteMultiBytes(a, w)

		case len(r) == 1 && len(w) == 0:
			v, err := m.ReadByte(a)
			r[0] = v
			return err

		case len(r) == 1 && len(w) == 1:
			v, err := m.ReadReg(a, w[0])
			r[0] = v
			return err
		}

		return fmt.Errorf("write %d read %d: %w", len(w), len(r), ErrUnsupported)
	})
}

func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, len(buf)+1)
	w[0] = reg
	copy(w[1:], buf)
	return b.Tx(uint16(addr), w, nil)
}

// SetSpeed switches the master to a spin delay of half the bit period of f.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("%s: invalid speed %s", b.name, f)
	}

	b.mutex.Lock()
	b.m.SetDelay(DelayForSpeed(f))
	b.mutex.Unlock()
	return nil
}

func (b *Bus) String() string {
	return b.name
}

func (b *Bus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Register makes a software bus available through i2creg.Open under name.
func Register(name string, number int, open func() (*Bus, error)) error {
	return i2creg.Register(name, nil, number, func() (i2c.BusCloser, error) {
		bus, err := open()
		if err != nil {
			return nil, err
		}
		return bus, nil
	})
}
