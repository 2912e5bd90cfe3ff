package mcp2221a

import (
	"fmt"
	"sync"
)

// Lines runs a software bus on two GP pins. Every line change is one USB
// round trip, so the bus is slow but usable for probing and configuration.
// Both pins need external pull-ups.
type Lines struct {
	gpio     *GPIO
	scl, sda byte

	errMutex sync.Mutex
	err      error
}

// NewLines switches scl and sda to GPIO mode and releases both.
func NewLines(mcp *MCP2221A, scl, sda byte) (*Lines, error) {
	if scl == sda {
		return nil, fmt.Errorf("clock and data on the same pin GP%d", scl)
	}

	for _, pin := range []byte{scl, sda} {
		if err := mcp.GPIO.SetConfig(pin, 1, ModeGPIO, DirInput); err != nil {
			return nil, fmt.Errorf("configure GP%d: %w", pin, err)
		}
	}

	return &Lines{gpio: mcp.GPIO, scl: scl, sda: sda}, nil
}

func (l *Lines) latch(err error) {
	if err == nil {
		return
	}

	l.errMutex.Lock()
	if l.err == nil {
		l.err = err
	}
	l.errMutex.Unlock()
}

func (l *Lines) drive(pin byte, level bool) {
	if level {
		l.latch(l.gpio.Release(pin))
		return
	}
	l.latch(l.gpio.Set(pin, 0))
}

func (l *Lines) SetClock(level bool) {
	l.drive(l.scl, level)
}

func (l *Lines) SetData(level bool) {
	l.drive(l.sda, level)
}

// ReadData samples the data pin. A failed read counts as high, the idle
// level, and is reported through Err.
func (l *Lines) ReadData() bool {
	v, err := l.gpio.Get(l.sda)
	if err != nil {
		l.latch(err)
		return true
	}
	return v != 0
}

// Err returns the first USB error since the last call and clears it.
func (l *Lines) Err() error {
	l.errMutex.Lock()
	defer l.errMutex.Unlock()

	err := l.err
	l.err = nil
	return err
}

func (l *Lines) String() string {
	return fmt.Sprintf("%s:GP%d/GP%d", l.gpio.Serial, l.scl, l.sda)
}
