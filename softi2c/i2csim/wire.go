// Package i2csim simulates the two bus lines together with devices that
// answer at the bit level. It implements softi2c.Lines, decodes start and
// stop conditions and bytes from the line transitions, and records what it
// saw as a trace.
package i2csim

import (
	"fmt"
	"strings"
	"sync"
)

// Device is a virtual bus device.
type Device interface {
	// Addressed is called when an address byte selects the device. Returning
	// false leaves the address unacknowledged.
	Addressed(read bool) bool
	// Write receives a byte from the master; returning false NACKs it.
	Write(b byte) bool
	// Read returns the next byte to shift out to the master.
	Read() byte
	// Stop is called at the stop condition.
	Stop()
}

type EventKind int

const (
	EventStart EventKind = iota
	EventStop
	EventByte
)

type Event struct {
	Kind EventKind

	// Repeated marks a start condition seen while a transaction was open.
	Repeated bool

	Value byte
	Ack   bool
	// Read marks a byte driven by the device.
	Read bool
}

func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		if e.Repeated {
			return "Sr"
		}
		return "S"
	case EventStop:
		return "P"
	}

	dir := "W"
	if e.Read {
		dir = "R"
	}
	ack := "NACK"
	if e.Ack {
		ack = "ACK"
	}
	return fmt.Sprintf("%s 0x%02x %s", dir, e.Value, ack)
}

type state int

const (
	stateIdle state = iota
	stateAddress
	stateWrite
	stateRead
	stateIgnore
)

// Wire is the simulated pair of lines. Both lines idle high.
type Wire struct {
	mutex   sync.Mutex
	devices map[uint8]Device

	scl       bool
	sdaMaster bool
	sdaDevice bool // device pulls data low

	state     state
	next      state
	bits      int
	shift     byte
	ack       bool
	masterAck bool
	out       byte
	dev       Device

	events []Event
	reads  int
}

func NewWire() *Wire {
	return &Wire{
		devices:   make(map[uint8]Device),
		scl:       true,
		sdaMaster: true,
	}
}

// Attach places d at the 7-bit address addr.
func (w *Wire) Attach(addr uint8, d Device) {
	w.mutex.Lock()
	w.devices[addr&0x7f] = d
	w.mutex.Unlock()
}

func (w *Wire) sda() bool {
	return w.sdaMaster && !w.sdaDevice
}

func (w *Wire) SetClock(level bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if level == w.scl {
		return
	}
	w.scl = level

	if level {
		w.rising()
	} else {
		w.falling()
	}
}

func (w *Wire) SetData(level bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	before := w.sda()
	w.sdaMaster = level
	after := w.sda()

	if !w.scl || before == after {
		return
	}

	if !after {
		w.events = append(w.events, Event{Kind: EventStart, Repeated: w.state != stateIdle})
		w.state = stateAddress
		w.bits = 0
		w.shift = 0
		w.sdaDevice = false
		return
	}

	w.events = append(w.events, Event{Kind: EventStop})
	if w.dev != nil {
		w.dev.Stop()
	}
	w.dev = nil
	w.state = stateIdle
	w.bits = 0
	w.sdaDevice = false
}

func (w *Wire) ReadData() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.reads++
	return w.sda()
}

func (w *Wire) rising() {
	if w.state == stateIdle {
		return
	}

	w.bits++
	bit := w.sda()

	if w.bits <= 8 {
		if w.state == stateRead {
			return
		}

		w.shift <<= 1
		if bit {
			w.shift |= 1
		}
		if w.bits == 8 {
			w.ack = w.accept(w.shift)
		}
		return
	}

	if w.bits == 9 {
		if w.state == stateRead {
			w.masterAck = !bit
			w.events = append(w.events, Event{Kind: EventByte, Value: w.out, Ack: !bit, Read: true})
		} else {
			w.events = append(w.events, Event{Kind: EventByte, Value: w.shift, Ack: !bit})
		}
	}
}

func (w *Wire) falling() {
	if w.state == stateIdle {
		return
	}

	switch {
	case w.bits == 8:
		if w.state == stateRead {
			w.sdaDevice = false
		} else {
			w.sdaDevice = w.ack
		}

	case w.bits == 9:
		w.sdaDevice = false
		w.bits = 0
		w.shift = 0

		switch w.state {
		case stateAddress:
			w.state = w.next
		case stateWrite:
			if !w.ack {
				w.state = stateIgnore
			}
		case stateRead:
			if !w.masterAck {
				w.state = stateIgnore
			}
		}

		if w.state == stateRead {
			w.out = w.dev.Read()
			w.present(7)
		}

	case w.bits >= 1 && w.bits <= 7:
		if w.state == stateRead {
			w.present(7 - w.bits)
		}
	}
}

func (w *Wire) present(bit int) {
	w.sdaDevice = w.out>>uint(bit)&1 == 0
}

func (w *Wire) accept(b byte) bool {
	switch w.state {
	case stateAddress:
		dev, ok := w.devices[b>>1]
		read := b&1 == 1
		if ok && dev.Addressed(read) {
			w.dev = dev
			w.next = stateWrite
			if read {
				w.next = stateRead
			}
			return true
		}
		w.next = stateIgnore
		return false

	case stateWrite:
		return w.dev.Write(b)
	}

	return false
}

// Events returns a copy of the trace recorded so far.
func (w *Wire) Events() []Event {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return append([]Event(nil), w.events...)
}

// Bytes returns the values of the byte events in the trace, in order.
func (w *Wire) Bytes() []byte {
	var b []byte
	for _, e := range w.Events() {
		if e.Kind == EventByte {
			b = append(b, e.Value)
		}
	}
	return b
}

// ReadCount returns how often the data line was sampled.
func (w *Wire) ReadCount() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.reads
}

// Reset clears the trace and the sample counter.
func (w *Wire) Reset() {
	w.mutex.Lock()
	w.events = nil
	w.reads = 0
	w.mutex.Unlock()
}

// Idle reports whether both lines are released.
func (w *Wire) Idle() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.scl && w.sda()
}

// Trace formats the recorded events one per line.
func (w *Wire) Trace() string {
	var sb strings.Builder
	for _, e := range w.Events() {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
