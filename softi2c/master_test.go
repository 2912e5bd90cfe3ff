package softi2c_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/i2csim"
)

const devAddr = 0x50

func newSim(t *testing.T, delayUnits int) (*softi2c.Master, *i2csim.Wire) {
	t.Helper()

	wire := i2csim.NewWire()
	m := softi2c.New(wire, softi2c.Config{
		DelayUnits: delayUnits,
		Delay:      softi2c.NoDelay,
		Log:        t.Logf,
	})
	return m, wire
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func countStops(events []i2csim.Event) int {
	n := 0
	for _, e := range events {
		if e.Kind == i2csim.EventStop {
			n++
		}
	}
	return n
}

func TestWriteByteFraming(t *testing.T) {
	m, wire := newSim(t, 4)
	regs := &i2csim.Registers{}
	wire.Attach(devAddr, regs)

	require.NoError(t, m.WriteByte(devAddr, 0x3c))

	golden(t).Assert(t, "write_byte", []byte(wire.Trace()))
	assert.True(t, wire.Idle())
}

func TestWriteByteNoDevice(t *testing.T) {
	m, wire := newSim(t, 4)

	err := m.WriteByte(devAddr, 0x3c)
	require.ErrorIs(t, err, softi2c.ErrNoAck)

	events := wire.Events()
	require.Len(t, events, 3)
	assert.Equal(t, i2csim.EventStart, events[0].Kind)
	assert.Equal(t, i2csim.Event{Kind: i2csim.EventByte, Value: devAddr << 1}, events[1])
	assert.Equal(t, i2csim.EventStop, events[2].Kind)
	assert.True(t, wire.Idle())
}

func TestWriteMultiBytesStopsAtNack(t *testing.T) {
	m, wire := newSim(t, 4)
	regs := &i2csim.Registers{
		Nack: func(n int, b byte) bool { return n == 1 },
	}
	wire.Attach(devAddr, regs)

	err := m.WriteMultiBytes(devAddr, []byte{0x10, 0x11, 0x12})
	require.ErrorIs(t, err, softi2c.ErrNoAck)

	golden(t).Assert(t, "write_multi_nack", []byte(wire.Trace()))
	assert.Equal(t, []byte{devAddr << 1, 0x10, 0x11}, wire.Bytes())
	assert.Equal(t, 1, countStops(wire.Events()))
}

func TestWriteMultiBytes(t *testing.T) {
	m, wire := newSim(t, 4)
	stream := &i2csim.Stream{}
	wire.Attach(devAddr, stream)

	payload := []byte{0xfd, 0x00, 0x01, 0x21}
	require.NoError(t, m.WriteMultiBytes(devAddr, payload))
	require.NoError(t, m.WriteMultiBytes(devAddr, nil))

	assert.Equal(t, [][]byte{payload, nil}, stream.Written())
	assert.Equal(t, 2, countStops(wire.Events()))
}

func TestReadRegCombinedFormat(t *testing.T) {
	m, wire := newSim(t, 4)
	regs := &i2csim.Registers{}
	regs.Set(0x07, 0x5a)
	wire.Attach(devAddr, regs)

	v, err := m.ReadReg(devAddr, 0x07)
	require.NoError(t, err)
	assert.Equal(t, byte(0x5a), v)

	golden(t).Assert(t, "read_reg", []byte(wire.Trace()))
}

func TestRegisterRoundTrip(t *testing.T) {
	m, wire := newSim(t, 4)
	regs := &i2csim.Registers{}
	wire.Attach(devAddr, regs)

	for reg := 0; reg < 256; reg += 17 {
		v := byte(reg*7 + 3)
		require.NoError(t, m.WriteReg(devAddr, byte(reg), v))
		assert.Equal(t, v, regs.Get(byte(reg)))

		got, err := m.ReadReg(devAddr, byte(reg))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestReadByteFollowsRegisterPointer(t *testing.T) {
	m, wire := newSim(t, 4)
	regs := &i2csim.Registers{}
	regs.Set(0x21, 0xaa)
	regs.Set(0x22, 0xbb)
	wire.Attach(devAddr, regs)

	v, err := m.ReadReg(devAddr, 0x21)
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), v)

	v, err = m.ReadByte(devAddr)
	require.NoError(t, err)
	assert.Equal(t, byte(0xbb), v)
}

func TestReadByteNoDevice(t *testing.T) {
	m, wire := newSim(t, 4)

	v, err := m.ReadByte(0x11)
	require.ErrorIs(t, err, softi2c.ErrNoAck)
	assert.Zero(t, v)
	assert.Equal(t, "S\nW 0x23 NACK\nP\n", wire.Trace())
}

type writeOnly struct {
	i2csim.Registers
}

func (w *writeOnly) Addressed(read bool) bool {
	if read {
		return false
	}
	return w.Registers.Addressed(read)
}

func TestReadRegReadPhaseNack(t *testing.T) {
	m, wire := newSim(t, 4)
	wire.Attach(devAddr, &writeOnly{})

	_, err := m.ReadReg(devAddr, 0x01)
	require.ErrorIs(t, err, softi2c.ErrNoAck)
	assert.Equal(t, "S\nW 0xa0 ACK\nW 0x01 ACK\nSr\nW 0xa1 NACK\nP\n", wire.Trace())
	assert.True(t, wire.Idle())
}

func TestReadRegRegisterNack(t *testing.T) {
	m, wire := newSim(t, 4)
	wire.Attach(devAddr, &i2csim.Registers{
		Nack: func(n int, b byte) bool { return true },
	})

	_, err := m.ReadReg(devAddr, 0x01)
	require.ErrorIs(t, err, softi2c.ErrNoAck)
	assert.Equal(t, "S\nW 0xa0 ACK\nW 0x01 NACK\nP\n", wire.Trace())
}

func TestAckPollIsBounded(t *testing.T) {
	for _, units := range []int{1, 5, 45} {
		m, wire := newSim(t, units)

		require.ErrorIs(t, m.WriteByte(devAddr, 0), softi2c.ErrNoAck)
		assert.Equal(t, 3*units, wire.ReadCount(), "delay units %d", units)
	}
}

func TestAckPollStopsEarly(t *testing.T) {
	m, wire := newSim(t, 45)
	wire.Attach(devAddr, &i2csim.Registers{})

	require.NoError(t, m.WriteReg(devAddr, 1, 2))
	assert.Equal(t, 3, wire.ReadCount())
}

func TestBitOrder(t *testing.T) {
	m, wire := newSim(t, 2)
	wire.Attach(devAddr, &i2csim.Stream{})

	for v := 0; v < 256; v++ {
		wire.Reset()
		require.NoError(t, m.WriteByte(devAddr, byte(v)))
		require.Equal(t, []byte{devAddr << 1, byte(v)}, wire.Bytes())
	}
}

func TestAddressRange(t *testing.T) {
	m, wire := newSim(t, 4)

	require.ErrorIs(t, m.WriteByte(0x80, 1), softi2c.ErrAddress)
	_, err := m.ReadReg(0xff, 1)
	require.ErrorIs(t, err, softi2c.ErrAddress)
	assert.Empty(t, wire.Events())
}

func TestScan(t *testing.T) {
	m, wire := newSim(t, 1)
	wire.Attach(0x20, &i2csim.Stream{})
	wire.Attach(0x40, &i2csim.Stream{})
	wire.Attach(0x03, &i2csim.Stream{})

	found, err := m.Scan()
	require.NoError(t, err)
	assert.Equal(t, []uint8{0x20, 0x40}, found)
}

type edgeCounter struct {
	rising, falling int
	level           bool
	dataWrites      int
}

func (e *edgeCounter) SetClock(level bool) {
	if level && !e.level {
		e.rising++
	}
	if !level && e.level {
		e.falling++
	}
	e.level = level
}

func (e *edgeCounter) SetData(level bool) { e.dataWrites++ }
func (e *edgeCounter) ReadData() bool     { return true }

func TestClockTestOut(t *testing.T) {
	lines := &edgeCounter{level: true}
	m := softi2c.New(lines, softi2c.Config{Delay: softi2c.NoDelay})

	m.ClockTestOut(10)
	assert.Equal(t, 10, lines.rising)
	assert.Equal(t, 10, lines.falling)
	assert.Zero(t, lines.dataWrites)
}
