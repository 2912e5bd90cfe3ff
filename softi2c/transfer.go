package softi2c

type ackState bool

const (
	ack  ackState = true
	nack ackState = false
)

func (a ackState) String() string {
	if a {
		return "ACK"
	}
	return "NACK"
}

// sendByte shifts b out MSB first and then clocks in the acknowledgment bit.
// The device has at most 3*delayUnits polls to pull data low.
func (m *Master) sendByte(b byte) ackState {
	for i := 7; i >= 0; i-- {
		m.lines.SetClock(false)
		m.delay.WaitHalfBit()
		m.lines.SetData(b>>uint(i)&1 == 1)
		m.delay.WaitHalfBit()
		m.lines.SetClock(true)
		m.delay.WaitHalfBit()
		m.delay.WaitHalfBit()
	}

	m.lines.SetClock(false)
	m.lines.SetData(true)
	m.delay.WaitHalfBit()
	m.delay.WaitHalfBit()
	m.lines.SetClock(true)

	for polls := 0; polls < m.ackPolls(); polls++ {
		if !m.lines.ReadData() {
			m.delay.WaitHalfBit()
			m.delay.WaitHalfBit()
			return ack
		}
	}

	return nack
}

// receiveByte clocks in one byte MSB first and always answers with NACK, as
// the master never continues a read past one byte.
func (m *Master) receiveByte() byte {
	var b byte

	m.lines.SetData(true)
	for i := 7; i >= 0; i-- {
		m.lines.SetClock(false)
		m.delay.WaitHalfBit()
		m.delay.WaitHalfBit()
		m.lines.SetClock(true)
		m.delay.WaitHalfBit()
		if m.lines.ReadData() {
			b |= 1 << uint(i)
		}
		m.delay.WaitHalfBit()
	}

	m.lines.SetClock(false)
	m.delay.WaitHalfBit()
	m.lines.SetData(true)
	m.delay.WaitHalfBit()
	m.lines.SetClock(true)
	m.delay.WaitHalfBit()
	m.delay.WaitHalfBit()

	return b
}

func (m *Master) sendAddress(addr uint8, read bool) ackState {
	b := addr << 1
	if read {
		b |= 1
	}
	return m.sendByte(b)
}

func (m *Master) ackPolls() int {
	return 3 * m.delayUnits
}
