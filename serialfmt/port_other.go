//go:build !linux

package serialfmt

import (
	"errors"
	"os"
)

func OpenPort(path string, baud int) (*os.File, error) {
	return nil, errors.New("serial ports are only supported on linux")
}
