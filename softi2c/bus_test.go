package softi2c_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/i2csim"
)

type closeCounter int

func (c *closeCounter) Close() error {
	*c++
	return nil
}

func newSimBus(t *testing.T) (*softi2c.Bus, *i2csim.Wire, *closeCounter) {
	m, wire := newSim(t, 4)
	closed := new(closeCounter)
	return softi2c.NewBus(m, "sim", closed), wire, closed
}

func TestBusTxShapes(t *testing.T) {
	bus, wire, _ := newSimBus(t)
	regs := &i2csim.Registers{}
	wire.Attach(devAddr, regs)

	require.NoError(t, bus.Tx(devAddr, nil, nil))
	require.ErrorIs(t, bus.Tx(0x51, nil, nil), softi2c.ErrNoAck)

	require.NoError(t, bus.Tx(devAddr, []byte{0x10, 0xde, 0xad}, nil))
	assert.Equal(t, byte(0xde), regs.Get(0x10))
	assert.Equal(t, byte(0xad), regs.Get(0x11))

	r := make([]byte, 1)
	require.NoError(t, bus.Tx(devAddr, []byte{0x11}, r))
	assert.Equal(t, byte(0xad), r[0])

	regs.Set(0x12, 0x77)
	require.NoError(t, bus.Tx(devAddr, nil, r))
	assert.Equal(t, byte(0x77), r[0])

	require.ErrorIs(t, bus.Tx(devAddr, []byte{0x10}, make([]byte, 2)), softi2c.ErrUnsupported)
	require.ErrorIs(t, bus.Tx(devAddr, []byte{0x10, 0x11}, r), softi2c.ErrUnsupported)
	require.ErrorIs(t, bus.Tx(0x100, nil, nil), softi2c.ErrAddress)
}

func TestBusDriversInterface(t *testing.T) {
	bus, wire, _ := newSimBus(t)
	regs := &i2csim.Registers{}
	wire.Attach(devAddr, regs)

	var dev drivers.I2C = bus
	require.NoError(t, dev.Tx(devAddr, []byte{0x30, 0x42}, nil))

	buf := make([]byte, 1)
	require.NoError(t, bus.ReadRegister(devAddr, 0x30, buf))
	assert.Equal(t, byte(0x42), buf[0])

	require.NoError(t, bus.WriteRegister(devAddr, 0x31, []byte{0x99}))
	assert.Equal(t, byte(0x99), regs.Get(0x31))
}

func TestBusSetSpeed(t *testing.T) {
	bus, wire, _ := newSimBus(t)
	wire.Attach(devAddr, &i2csim.Registers{})

	require.Error(t, bus.SetSpeed(0))
	require.NoError(t, bus.SetSpeed(10*physic.MegaHertz))
	require.NoError(t, bus.Tx(devAddr, []byte{1, 2}, nil))
}

func TestBusPinCPU(t *testing.T) {
	bus, wire, _ := newSimBus(t)
	wire.Attach(devAddr, &i2csim.Registers{})

	bus.PinCPU(-1)
	require.NoError(t, bus.Tx(devAddr, []byte{1, 2}, nil))
}

func TestBusRegister(t *testing.T) {
	bus, wire, closed := newSimBus(t)
	wire.Attach(devAddr, &i2csim.Registers{})

	require.NoError(t, softi2c.Register("softi2c-test", -1, func() (*softi2c.Bus, error) {
		return bus, nil
	}))

	opened, err := i2creg.Open("softi2c-test")
	require.NoError(t, err)
	assert.Equal(t, "sim", opened.String())

	dev := &i2c.Dev{Bus: opened, Addr: devAddr}
	require.NoError(t, dev.Tx([]byte{0x05, 0x06}, nil))

	require.NoError(t, opened.Close())
	assert.Equal(t, closeCounter(1), *closed)
}
