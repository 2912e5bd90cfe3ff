// Package segment encodes glyphs for eight segment LED displays. Bit 0 drives
// segment a, bits 1 to 6 segments b to g and bit 7 the decimal point.
package segment

import (
	"fmt"
	"strings"
)

type Polarity int

const (
	// CommonAnode displays light a segment when its bit is low.
	CommonAnode Polarity = iota
	CommonCathode
)

var cathode = [16]byte{
	0x3F, 0x06, 0x5B, 0x4F, 0x66, 0x6D, 0x7D, 0x07, 0x7F, 0x6F, // 0-9
	0x39, // C
	0x79, // E
	0x71, // F
	0x76, // H
	0x38, // L
	0x73, // P
}

const dpBit = 0x80

// Glyphs lists the characters in table order.
const Glyphs = "0123456789CEFHLP"

// Table returns the sixteen glyph patterns for p in the order of Glyphs.
func Table(p Polarity) [16]byte {
	t := cathode
	if p == CommonAnode {
		for i := range t {
			t[i] = ^t[i]
		}
	}
	return t
}

func (p Polarity) String() string {
	if p == CommonAnode {
		return "anode"
	}
	return "cathode"
}

// ParsePolarity accepts "anode" and "cathode".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(s) {
	case "anode":
		return CommonAnode, nil
	case "cathode":
		return CommonCathode, nil
	}
	return 0, fmt.Errorf("unknown polarity %q", s)
}

func (p Polarity) apply(v byte) byte {
	if p == CommonAnode {
		return ^v
	}
	return v
}

// Encode returns the pattern for glyph, with the decimal point lit if dp is
// set. A space gives a dark digit.
func (p Polarity) Encode(glyph rune, dp bool) (byte, error) {
	var v byte

	if glyph != ' ' {
		i := strings.IndexRune(Glyphs, glyph)
		if i < 0 {
			i = strings.IndexRune(Glyphs, []rune(strings.ToUpper(string(glyph)))[0])
		}
		if i < 0 {
			return 0, fmt.Errorf("no segment pattern for %q", glyph)
		}
		v = cathode[i]
	}

	if dp {
		v |= dpBit
	}
	return p.apply(v), nil
}

// EncodeString encodes one digit per glyph. A '.' lights the decimal point
// of the digit before it, or a dark digit if there is none.
func (p Polarity) EncodeString(s string) ([]byte, error) {
	var raw []byte

	for _, r := range s {
		if r == '.' {
			if len(raw) == 0 || raw[len(raw)-1]&dpBit != 0 {
				raw = append(raw, 0)
			}
			raw[len(raw)-1] |= dpBit
			continue
		}

		v, err := CommonCathode.Encode(r, false)
		if err != nil {
			return nil, err
		}
		raw = append(raw, v)
	}

	for i := range raw {
		raw[i] = p.apply(raw[i])
	}
	return raw, nil
}
