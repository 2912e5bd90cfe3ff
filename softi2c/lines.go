// Package softi2c implements a two-wire (I²C style) bus master on top of two
// general purpose lines. Every bit is produced by toggling the clock and data
// lines under a busy-wait half-bit delay, so no bus peripheral is needed.
//
// The master only does what simple single-master hardware needs: 7-bit
// addresses, blocking transfers, one received byte per transaction and no
// clock stretching.
package softi2c

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Lines is the electrical layer the master drives. A level of true releases
// the line (pulled up), false drives it low.
type Lines interface {
	SetClock(level bool)
	SetData(level bool)
	ReadData() bool
}

// LineFault is optionally implemented by Lines whose writes can fail. The
// master checks it after each transaction.
type LineFault interface {
	Err() error
}

// PinLines drives the bus through two periph GPIO pins. The data line is
// emulated open drain: high switches the pin to an input with pull-up, low
// drives it as an output.
type PinLines struct {
	SCL gpio.PinIO
	SDA gpio.PinIO

	errMutex sync.Mutex
	err      error
}

func NewPinLines(scl, sda gpio.PinIO) (*PinLines, error) {
	p := &PinLines{SCL: scl, SDA: sda}

	if err := scl.Out(gpio.High); err != nil {
		return nil, err
	}
	if err := sda.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *PinLines) latch(err error) {
	if err == nil {
		return
	}

	p.errMutex.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMutex.Unlock()
}

func (p *PinLines) SetClock(level bool) {
	p.latch(p.SCL.Out(gpio.Level(level)))
}

func (p *PinLines) SetData(level bool) {
	if level {
		p.latch(p.SDA.In(gpio.PullUp, gpio.NoEdge))
		return
	}
	p.latch(p.SDA.Out(gpio.Low))
}

func (p *PinLines) ReadData() bool {
	return p.SDA.Read() == gpio.High
}

// Err returns the first pin error since the last call and clears it.
func (p *PinLines) Err() error {
	p.errMutex.Lock()
	defer p.errMutex.Unlock()

	err := p.err
	p.err = nil
	return err
}

func (p *PinLines) String() string {
	return p.SCL.Name() + "/" + p.SDA.Name()
}
