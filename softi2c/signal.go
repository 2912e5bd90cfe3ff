package softi2c

// start emits a start condition: data falls while the clock is high. It is
// also used for repeated starts, so it first brings the clock low.
func (m *Master) start() {
	m.lines.SetClock(false)
	m.delay.WaitHalfBit()
	m.lines.SetData(true)
	m.delay.WaitHalfBit()
	m.lines.SetClock(true)
	m.delay.WaitHalfBit()
	m.lines.SetData(false)
	m.delay.WaitHalfBit()
}

// stop emits a stop condition: data rises while the clock is high. Both lines
// are released afterwards.
func (m *Master) stop() {
	m.lines.SetClock(false)
	m.delay.WaitHalfBit()
	m.lines.SetData(false)
	m.delay.WaitHalfBit()
	m.lines.SetClock(true)
	m.delay.WaitHalfBit()
	m.lines.SetData(true)
	m.delay.WaitHalfBit()
}

// ClockTestOut emits cycles full clock periods without touching the data line,
// so the bus speed can be measured on a scope.
func (m *Master) ClockTestOut(cycles int) {
	for i := 0; i < cycles; i++ {
		m.lines.SetClock(false)
		m.delay.WaitHalfBit()
		m.delay.WaitHalfBit()
		m.lines.SetClock(true)
		m.delay.WaitHalfBit()
		m.delay.WaitHalfBit()
	}
}
