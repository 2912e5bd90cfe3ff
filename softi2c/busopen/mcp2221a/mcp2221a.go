// Package mcp2221a drives the four general purpose pins of a Microchip
// MCP2221A USB bridge over HID. The chip's own I²C engine is not used: two of
// the pins carry a software bus instead, so any pin pair can host one.
//
// Datasheet: http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
package mcp2221a

// Derived from: https://github.com/ardnew/mcp2221a
// MIT License
//
// Copyright (c) 2020 ardnew
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

import (
	"errors"
	"fmt"
	"sync"

	usb "github.com/karalabe/hid"
)

// VID and PID are the identifiers of an MCP2221A with factory settings.
const (
	VID = 0x04D8
	PID = 0x00DD
)

// MsgSz is the size (in bytes) of all command and response messages.
const MsgSz = 64

// WordSet and WordClr are the logical true and false values for a single word
// (byte) in a message.
const (
	WordSet byte = 0xFF
	WordClr byte = 0x00
)

func makeMsg() []byte { return make([]byte, MsgSz) }

type (
	GPIOMode byte
	GPIODir  byte
)

const (
	cmdGPIOSet byte = 0x50
	cmdGPIOGet byte = 0x51

	cmdSRAMSet byte = 0x60
	cmdSRAMGet byte = 0x61
)

// HIDDevice is the part of a HID handle the driver uses. *hid.Device
// satisfies it.
type HIDDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// MCP2221A is one opened bridge. Commands are serialized, so the modules may
// be shared between goroutines.
type MCP2221A struct {
	mutex  sync.Mutex
	Device HIDDevice
	Serial string

	SRAM *SRAM // volatile active settings
	GPIO *GPIO // 4x GPIO pins
}

// AttachedDevices returns the descriptors of all connected HID devices
// matching vid and pid.
func AttachedDevices(vid uint16, pid uint16) []usb.DeviceInfo {
	return usb.Enumerate(vid, pid)
}

// Open opens the first attached bridge whose serial number matches serial.
// An empty serial selects the first bridge found.
func Open(serial string) (*MCP2221A, error) {
	for _, info := range AttachedDevices(VID, PID) {
		if serial != "" && info.Serial != serial {
			continue
		}

		dev, err := info.Open()
		if err != nil {
			return nil, err
		}
		return NewFromDev(dev, info.Serial), nil
	}

	if serial == "" {
		return nil, errors.New("no MCP2221A found")
	}
	return nil, fmt.Errorf("no MCP2221A with serial %q found", serial)
}

func NewFromDev(dev HIDDevice, serial string) *MCP2221A {
	mcp := &MCP2221A{
		Device: dev,
		Serial: serial,
	}
	mcp.SRAM, mcp.GPIO = &SRAM{mcp}, &GPIO{mcp}

	return mcp
}

func (mcp *MCP2221A) valid() (bool, error) {
	if nil == mcp {
		return false, fmt.Errorf("nil MCP2221A")
	}

	if nil == mcp.Device {
		return false, fmt.Errorf("nil USB HID device")
	}

	return true, nil
}

func (mcp *MCP2221A) Close() error {
	if ok, err := mcp.valid(); !ok {
		return err
	}

	return mcp.Device.Close()
}

// send transmits a command message and returns the response message. The
// response must echo cmd and carry a success status.
func (mcp *MCP2221A) send(cmd byte, data []byte) ([]byte, error) {
	if ok, err := mcp.valid(); !ok {
		return nil, err
	}

	mcp.mutex.Lock()
	defer mcp.mutex.Unlock()

	data[0] = cmd
	if _, err := mcp.Device.Write(data); nil != err {
		return nil, fmt.Errorf("Write([cmd=0x%02X]): %v", cmd, err)
	}

	rsp := makeMsg()
	recv, err := mcp.Device.Read(rsp)
	if nil != err {
		return nil, fmt.Errorf("Read([cmd=0x%02X]): %v", cmd, err)
	}
	if recv < MsgSz {
		return rsp, fmt.Errorf("Read([cmd=0x%02X]): short read (%d of %d bytes)", cmd, recv, MsgSz)
	}
	if rsp[0] != cmd || rsp[1] != WordClr {
		return rsp, fmt.Errorf("Read([cmd=0x%02X]): command failed", cmd)
	}

	return rsp, nil
}

// SRAM holds the volatile configuration of the chip.
type SRAM struct {
	*MCP2221A
}

// readRange returns bytes start..stop (inclusive) of the SRAM settings
// response.
func (mod *SRAM) readRange(start byte, stop byte) ([]byte, error) {
	if (start > stop) || (stop >= MsgSz) {
		return nil, fmt.Errorf("invalid byte range: [%d, %d]", start, stop)
	}

	rsp, err := mod.send(cmdSRAMGet, makeMsg())
	if nil != err {
		return nil, fmt.Errorf("send(): %v", err)
	}
	return rsp[start : stop+1], nil
}

// GPIO contains the methods associated with the GPIO module of the MCP2221A.
type GPIO struct {
	*MCP2221A
}

const (
	// GPPinCount is the number of GPIO pins available.
	GPPinCount = 4

	ModeGPIO    GPIOMode = 0x00
	ModeInvalid GPIOMode = 0xEE // reported by Get for pins not in GPIO mode

	DirOutput GPIODir = 0x00
	DirInput  GPIODir = 0x01
)

func checkPin(pin byte) error {
	if pin >= GPPinCount {
		return fmt.Errorf("invalid GPIO pin: %d", pin)
	}
	return nil
}

// SetConfig sets the power-on value, mode and direction of pin in SRAM. The
// other pins keep their current settings.
func (mod *GPIO) SetConfig(pin byte, val byte, mode GPIOMode, dir GPIODir) error {
	if err := checkPin(pin); err != nil {
		return err
	}

	cur, err := mod.SRAM.readRange(22, 25)
	if nil != err {
		return fmt.Errorf("SRAM.readRange(): %v", err)
	}

	cmd := makeMsg()
	cmd[7] = WordSet // alter GP designation
	copy(cmd[8:], cur)
	cmd[8+pin] = (val << 4) | (byte(dir) << 3) | byte(mode)

	if _, err := mod.send(cmdSRAMSet, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	}
	return nil
}

func (mod *GPIO) update(pin byte, alterVal bool, val byte, dir GPIODir) error {
	if err := checkPin(pin); err != nil {
		return err
	}

	cmd := makeMsg()

	i := 2 + 4*pin
	if alterVal {
		cmd[i+0] = WordSet
		cmd[i+1] = val
	}
	cmd[i+2] = WordSet
	cmd[i+3] = byte(dir)

	if _, err := mod.send(cmdGPIOSet, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	}
	return nil
}

// Set drives pin as an output at val.
func (mod *GPIO) Set(pin byte, val byte) error {
	return mod.update(pin, true, val, DirOutput)
}

// Release turns pin into an input, leaving the line to its pull-up.
func (mod *GPIO) Release(pin byte) error {
	return mod.update(pin, false, 0, DirInput)
}

// Get returns the current level of pin.
func (mod *GPIO) Get(pin byte) (byte, error) {
	if err := checkPin(pin); err != nil {
		return WordClr, err
	}

	rsp, err := mod.send(cmdGPIOGet, makeMsg())
	if nil != err {
		return WordClr, fmt.Errorf("send(): %v", err)
	}

	i := 2 + 2*pin
	if byte(ModeInvalid) == rsp[i] {
		return WordClr, fmt.Errorf("pin not in GPIO mode: %d", pin)
	}
	return rsp[i], nil
}
