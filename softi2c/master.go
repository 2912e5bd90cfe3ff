package softi2c

import (
	"encoding/hex"
	"fmt"
)

type LogFunc func(format string, params ...interface{})

type Config struct {
	// DelayUnits is the half-bit loop count. It also bounds the acknowledgment
	// poll to 3*DelayUnits reads of the data line.
	DelayUnits int

	// Delay overrides the default LoopDelay(DelayUnits).
	Delay Delayer

	Log LogFunc
}

// Master runs transactions on a pair of lines. It keeps no state between
// calls and does no locking: only one transaction may be in flight on a set
// of lines at a time.
type Master struct {
	lines      Lines
	delay      Delayer
	delayUnits int

	logFunc LogFunc
}

func New(lines Lines, cfg Config) *Master {
	if cfg.DelayUnits <= 0 {
		cfg.DelayUnits = DefaultDelayUnits
	}
	if cfg.Delay == nil {
		cfg.Delay = LoopDelay(cfg.DelayUnits)
	}

	return &Master{
		lines:      lines,
		delay:      cfg.Delay,
		delayUnits: cfg.DelayUnits,
		logFunc:    cfg.Log,
	}
}

func (m *Master) log(format string, params ...interface{}) {
	if m.logFunc != nil {
		m.logFunc(format, params...)
	}
}

// SetDelay replaces the timing primitive. The acknowledgment poll bound is
// not affected.
func (m *Master) SetDelay(d Delayer) {
	m.delay = d
}

// WriteByte sends one data byte to addr.
func (m *Master) WriteByte(addr uint8, data byte) error {
	t, err := m.begin("WriteByte", addr)
	if err != nil {
		return err
	}

	t.address(false)
	t.write(data, "data")
	return t.end()
}

// WriteMultiBytes sends data to addr in order. Transmission stops at the
// first byte that is not acknowledged.
func (m *Master) WriteMultiBytes(addr uint8, data []byte) error {
	t, err := m.begin("WriteMultiBytes", addr)
	if err != nil {
		return err
	}

	t.address(false)
	for i, b := range data {
		t.write(b, fmt.Sprintf("data byte %d", i))
	}
	return t.end()
}

// WriteReg writes data to register reg of the device at addr.
func (m *Master) WriteReg(addr uint8, reg uint8, data byte) error {
	t, err := m.begin("WriteReg", addr)
	if err != nil {
		return err
	}

	t.address(false)
	t.write(reg, "register")
	t.write(data, "data")
	return t.end()
}

// ReadByte reads one byte from addr.
func (m *Master) ReadByte(addr uint8) (byte, error) {
	t, err := m.begin("ReadByte", addr)
	if err != nil {
		return 0, err
	}

	t.address(true)
	b := t.read()
	return b, t.end()
}

// ReadReg reads register reg of the device at addr. The register is selected
// with a write, followed by a repeated start without releasing the bus.
func (m *Master) ReadReg(addr uint8, reg uint8) (byte, error) {
	t, err := m.begin("ReadReg", addr)
	if err != nil {
		return 0, err
	}

	t.address(false)
	t.write(reg, "register")
	t.restart()
	t.address(true)
	b := t.read()
	return b, t.end()
}

// Probe reports whether a device acknowledges addr.
func (m *Master) Probe(addr uint8) (bool, error) {
	t, err := m.begin("Probe", addr)
	if err != nil {
		return false, err
	}

	t.address(false)
	acked := t.err == nil
	t.err = nil

	return acked, t.end()
}

// Scan probes the non-reserved address range and returns the addresses
// that answered.
func (m *Master) Scan() ([]uint8, error) {
	var found []uint8

	for addr := uint8(0x08); addr <= 0x77; addr++ {
		ok, err := m.Probe(addr)
		if err != nil {
			return found, err
		}
		if ok {
			found = append(found, addr)
		}
	}

	return found, nil
}

type phase int

const (
	phaseIdle phase = iota
	phaseStarted
	phaseAddress
	phaseData
	phaseSecondStart
	phaseStopped
)

// transaction tracks one call. Once a byte is not acknowledged every further
// step is skipped, and end always emits the stop condition.
type transaction struct {
	m     *Master
	op    string
	addr  uint8
	phase phase
	err   error

	tx []byte
	rx []byte
}

func (m *Master) begin(op string, addr uint8) (*transaction, error) {
	if addr > 0x7f {
		return nil, fmt.Errorf("%s 0x%02x: %w", op, addr, ErrAddress)
	}

	t := &transaction{m: m, op: op, addr: addr}
	m.start()
	t.phase = phaseStarted
	return t, nil
}

func (t *transaction) address(read bool) {
	if t.err != nil {
		return
	}

	t.phase = phaseAddress
	if t.m.sendAddress(t.addr, read) == nack {
		t.err = fmt.Errorf("address 0x%02x: %w", t.addr, ErrNoAck)
	}
}

func (t *transaction) write(b byte, what string) {
	if t.err != nil {
		return
	}

	t.phase = phaseData
	t.tx = append(t.tx, b)
	if t.m.sendByte(b) == nack {
		t.err = fmt.Errorf("%s 0x%02x: %w", what, b, ErrNoAck)
	}
}

func (t *transaction) restart() {
	if t.err != nil {
		return
	}

	t.phase = phaseSecondStart
	t.m.start()
}

func (t *transaction) read() byte {
	if t.err != nil {
		return 0
	}

	t.phase = phaseData
	b := t.m.receiveByte()
	t.rx = append(t.rx, b)
	return b
}

func (t *transaction) end() error {
	if t.phase != phaseIdle && t.phase != phaseStopped {
		t.m.stop()
	}
	t.phase = phaseStopped

	if f, ok := t.m.lines.(LineFault); ok {
		if err := f.Err(); err != nil && t.err == nil {
			t.err = fmt.Errorf("line fault: %w", err)
		}
	}

	if t.err != nil {
		t.m.log("%s 0x%02x: tx=%s failed: %v", t.op, t.addr, hex.EncodeToString(t.tx), t.err)
		return fmt.Errorf("%s: %w", t.op, t.err)
	}

	t.m.log("%s 0x%02x: tx=%s rx=%s", t.op, t.addr, hex.EncodeToString(t.tx), hex.EncodeToString(t.rx))
	return nil
}
