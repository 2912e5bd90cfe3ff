// Package xfs5152ce drives an iFlytek XFS5152CE text to speech chip on a
// two-wire bus. Commands are framed as 0xFD, a big-endian length, the command
// byte and its payload; the chip answers every command with status bytes
// that are read back one at a time.
package xfs5152ce

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BertoldVdb/softi2c/softi2c"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"periph.io/x/conn/v3/gpio"
)

type LogFunc func(format string, params ...interface{})

// Bus is the part of a bus master the chip needs. *softi2c.Master and
// busclient.Client both provide it.
type Bus interface {
	WriteMultiBytes(addr uint8, data []byte) error
	ReadByte(addr uint8) (byte, error)
}

const DefaultAddress = 0x40

// MaxText is the largest encoded text the chip buffers in one frame.
const MaxText = 4000

const frameHeader = 0xFD

type command byte

const (
	cmdStart  command = 0x01
	cmdStop   command = 0x02
	cmdPause  command = 0x03
	cmdResume command = 0x04
	cmdStatus command = 0x21
)

const (
	replyInit    = 0x4A
	replyOK      = 0x41
	replyFail    = 0x45
	replyBusy    = 0x4E
	replyReady   = 0x4F
	replyNothing = 0xFF
)

// Encoding selects the text encoding of Speak. The zero value is Unicode.
type Encoding int

const (
	Unicode Encoding = iota
	GB2312
	GBK
	Big5
)

// wire returns the format byte the chip expects after the start command.
func (e Encoding) wire() (byte, error) {
	switch e {
	case GB2312:
		return 0x00, nil
	case GBK:
		return 0x01, nil
	case Big5:
		return 0x02, nil
	case Unicode:
		return 0x03, nil
	}
	return 0, fmt.Errorf("unknown encoding %d", int(e))
}

func (e Encoding) encoding() (encoding.Encoding, error) {
	switch e {
	case GB2312, GBK:
		return simplifiedchinese.GBK, nil
	case Big5:
		return traditionalchinese.Big5, nil
	case Unicode:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	}
	return nil, fmt.Errorf("unknown encoding %d", int(e))
}

func (e Encoding) String() string {
	switch e {
	case GB2312:
		return "gb2312"
	case GBK:
		return "gbk"
	case Big5:
		return "big5"
	case Unicode:
		return "unicode"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding accepts the names printed by Encoding.String.
func ParseEncoding(s string) (Encoding, error) {
	for _, e := range []Encoding{GB2312, GBK, Big5, Unicode} {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown encoding %q", s)
}

type Speaker int

const (
	XiaoYan   Speaker = 3
	XuJiu     Speaker = 51
	XuDuo     Speaker = 52
	XiaoPing  Speaker = 53
	Donald    Speaker = 54
	XuXiaobao Speaker = 55
)

var (
	ErrRejected  = errors.New("command rejected by chip")
	ErrNotReady  = errors.New("chip not ready")
	ErrTimeout   = errors.New("timeout waiting for chip")
	ErrTooLong   = errors.New("text too long")
	ErrNoBusyPin = errors.New("no busy pin configured")
)

type Config struct {
	// Address defaults to DefaultAddress.
	Address uint8
	// Encoding is used for Speak, Unicode unless set. Control tags are
	// always sent as Unicode.
	Encoding Encoding
	// Timeout bounds the wait for a command result. Defaults to one second.
	Timeout time.Duration
	// Busy is the optional RDY/BUSY output of the chip, high while speaking.
	Busy gpio.PinIn

	Log LogFunc
}

type Chip struct {
	bus Bus
	cfg Config

	workMutex sync.Mutex
}

func New(bus Bus, cfg Config) *Chip {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	return &Chip{
		bus: bus,
		cfg: cfg,
	}
}

func (c *Chip) log(format string, params ...interface{}) {
	if c.cfg.Log != nil {
		c.cfg.Log(" * "+format, params...)
	}
}

func (c *Chip) send(cmd command, payload []byte) error {
	n := len(payload) + 1
	frame := make([]byte, 0, n+3)
	frame = append(frame, frameHeader, byte(n>>8), byte(n), byte(cmd))
	frame = append(frame, payload...)

	c.log("Sending %s", hex.EncodeToString(frame))
	return c.bus.WriteMultiBytes(c.cfg.Address, frame)
}

// readReply reads one status byte. A read that is not acknowledged is retried
// until the deadline.
func (c *Chip) readReply(deadline time.Time) (byte, error) {
	for time.Now().Before(deadline) {
		b, err := c.bus.ReadByte(c.cfg.Address)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, softi2c.ErrNoAck) {
			return 0, err
		}
	}

	return 0, ErrTimeout
}

// result waits for the chip to accept or reject the last command. The chip
// reports rejection with 0x45; 0xFF means it has nothing more to say.
func (c *Chip) result() error {
	deadline := time.Now().Add(c.cfg.Timeout)

	for {
		b, err := c.readReply(deadline)
		if err != nil {
			return err
		}

		switch b {
		case replyFail:
			return ErrRejected
		case replyNothing:
			return nil
		}

		c.log("Reply   0x%02x", b)
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
	}
}

func (c *Chip) command(cmd command, payload []byte) error {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	if err := c.send(cmd, payload); err != nil {
		return err
	}
	return c.result()
}

func (c *Chip) speak(enc Encoding, text string) error {
	format, err := enc.wire()
	if err != nil {
		return err
	}
	e, err := enc.encoding()
	if err != nil {
		return err
	}

	data, err := e.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return fmt.Errorf("encode %s: %w", enc, err)
	}
	if len(data) > MaxText {
		return fmt.Errorf("%d bytes: %w", len(data), ErrTooLong)
	}

	payload := make([]byte, 0, len(data)+1)
	payload = append(payload, format)
	payload = append(payload, data...)

	return c.command(cmdStart, payload)
}

// Init checks that the chip answers and is idle, then restores the default
// synthesis parameters.
func (c *Chip) Init() error {
	c.workMutex.Lock()
	state, err := c.status()
	c.workMutex.Unlock()

	if err != nil {
		return err
	}
	if state != replyReady {
		return fmt.Errorf("status 0x%02x: %w", state, ErrNotReady)
	}

	// [d] restores defaults, [z1] rings on punctuation
	return c.speak(Unicode, "[d][z1]")
}

func (c *Chip) status() (byte, error) {
	if err := c.send(cmdStatus, nil); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	state, err := c.readReply(deadline)
	if err != nil {
		return 0, err
	}
	if state == replyInit {
		c.log("Chip finished initialization")
		state, err = c.readReply(deadline)
	}

	return state, err
}

// Ready queries the chip state: true when idle, false while speaking.
func (c *Chip) Ready() (bool, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	state, err := c.status()
	if err != nil {
		return false, err
	}

	switch state {
	case replyReady:
		return true, nil
	case replyBusy:
		return false, nil
	}
	return false, fmt.Errorf("unexpected status 0x%02x", state)
}

// Speak synthesizes text in the configured encoding.
func (c *Chip) Speak(text string) error {
	return c.speak(c.cfg.Encoding, text)
}

func (c *Chip) Stop() error {
	return c.command(cmdStop, nil)
}

func (c *Chip) Pause() error {
	return c.command(cmdPause, nil)
}

func (c *Chip) Resume() error {
	return c.command(cmdResume, nil)
}

func (c *Chip) tag(name string, level int) error {
	if level < 0 || level > 9 {
		return fmt.Errorf("%s %d out of range 0..9", name, level)
	}
	return c.speak(Unicode, fmt.Sprintf("[%s%d]", name[:1], level))
}

// Volume, Speed and Tune take a level from 0 to 9; the chip resets to 5.
func (c *Chip) Volume(level int) error {
	return c.tag("volume", level)
}

func (c *Chip) Speed(level int) error {
	return c.tag("speed", level)
}

func (c *Chip) Tune(level int) error {
	return c.tag("tune", level)
}

func (c *Chip) Speaker(s Speaker) error {
	switch s {
	case XiaoYan, XuJiu, XuDuo, XiaoPing, Donald, XuXiaobao:
		return c.speak(Unicode, fmt.Sprintf("[m%d]", int(s)))
	}
	return fmt.Errorf("unknown speaker %d", s)
}

func (c *Chip) tone(kind int, n int, max int) error {
	if n < 1 || n > max {
		return fmt.Errorf("tone %d out of range 1..%d", n, max)
	}
	return c.speak(Unicode, fmt.Sprintf("sound%d%02d", kind, n))
}

func (c *Chip) MessageTone(n int) error {
	return c.tone(1, n, 25)
}

func (c *Chip) RingTone(n int) error {
	return c.tone(2, n, 25)
}

func (c *Chip) WarningTone(n int) error {
	return c.tone(3, n, 30)
}

// Busy reads the RDY/BUSY line.
func (c *Chip) Busy() (bool, error) {
	if c.cfg.Busy == nil {
		return false, ErrNoBusyPin
	}
	return c.cfg.Busy.Read() == gpio.High, nil
}

// WaitIdle polls the busy line until the chip finished speaking.
func (c *Chip) WaitIdle(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		busy, err := c.Busy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		time.Sleep(10 * time.Millisecond)
	}
}
