package softi2c

import "errors"

// ErrNoAck signals that the addressed device did not pull the data line low
// within the acknowledgment window.
var ErrNoAck = errors.New("no ACK received")

// ErrAddress signals a device address that does not fit in 7 bits.
var ErrAddress = errors.New("address out of 7-bit range")

// ErrUnsupported is returned by Bus.Tx for transfer shapes the master cannot
// express, such as reads of more than one byte.
var ErrUnsupported = errors.New("transfer shape not supported by software master")
