// Package serialfmt writes numbers and formatted text the way small serial
// consoles expect them: fixed-width zero padded hex and binary, signed
// decimals that always carry a sign, and raw big-endian words.
package serialfmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// WriteUnsigned writes v in base, zero padded to at least align digits. Zero
// is written as at least one digit.
func WriteUnsigned(w io.Writer, v uint32, base int, align int) error {
	if base < 2 || base > len(digits) {
		return fmt.Errorf("invalid base %d", base)
	}

	var buf [32]byte
	i := len(buf)
	for ; v > 0; v /= uint32(base) {
		i--
		buf[i] = digits[v%uint32(base)]
	}

	if align < 1 {
		align = 1
	}
	if align > len(buf) {
		align = len(buf)
	}
	for len(buf)-i < align {
		i--
		buf[i] = '0'
	}

	_, err := w.Write(buf[i:])
	return err
}

// WriteSigned writes v in decimal with a leading '+' or '-'. align applies to
// the digits only.
func WriteSigned(w io.Writer, v int32, align int) error {
	sign := []byte{'+'}
	mag := uint32(v)
	if v < 0 {
		sign[0] = '-'
		mag = uint32(-int64(v))
	}

	if _, err := w.Write(sign); err != nil {
		return err
	}
	return WriteUnsigned(w, mag, 10, align)
}

// WriteWord writes v as two bytes, most significant first.
func WriteWord(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteDword writes v as four bytes, most significant first.
func WriteDword(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func WriteWords(w io.Writer, v []uint16) error {
	for _, x := range v {
		if err := WriteWord(w, x); err != nil {
			return err
		}
	}
	return nil
}

func WriteDwords(w io.Writer, v []uint32) error {
	for _, x := range v {
		if err := WriteDword(w, x); err != nil {
			return err
		}
	}
	return nil
}

// width returns the padding for hex (4 bits per digit) or binary output:
// values up to 8 bits get a byte's width, up to 16 bits a word's, else 32 bits.
func width(v uint32, bitsPerDigit int) int {
	bits := 32
	if v <= 0xFF {
		bits = 8
	} else if v <= 0xFFFF {
		bits = 16
	}
	return bits / bitsPerDigit
}
