// Package crc computes the CRC-32 used by STM32-style hardware units:
// polynomial 0x04C11DB7 processed MSB first, initial value 0xFFFFFFFF and no
// final XOR (CRC-32/MPEG-2).
package crc

import "hash"

const (
	Poly    = 0x04C11DB7
	InitVal = 0xFFFFFFFF
)

// Size of a checksum in bytes.
const Size = 4

var table = makeTable(Poly)

func makeTable(poly uint32) *[256]uint32 {
	t := new([256]uint32)
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// Update returns crc updated with p.
func Update(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = crc<<8 ^ table[byte(crc>>24)^b]
	}
	return crc
}

// Checksum returns the CRC of data.
func Checksum(data []byte) uint32 {
	return Update(InitVal, data)
}

type digest struct {
	crc uint32
}

// New returns a hash.Hash32 computing the same checksum. Sum appends the
// value big-endian.
func New() hash.Hash32 {
	return &digest{crc: InitVal}
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = InitVal }

func (d *digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum32() uint32 { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	s := d.crc
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}
