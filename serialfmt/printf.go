package serialfmt

import (
	"errors"
	"fmt"
	"io"
)

var ErrMissingArg = errors.New("missing argument")

func toUint32(arg interface{}) (uint32, error) {
	switch v := arg.(type) {
	case uint8:
		return uint32(v), nil
	case uint16:
		return uint32(v), nil
	case uint32:
		return v, nil
	case uint64:
		return uint32(v), nil
	case uint:
		return uint32(v), nil
	case int8:
		return uint32(v), nil
	case int16:
		return uint32(v), nil
	case int32:
		return uint32(v), nil
	case int64:
		return uint32(v), nil
	case int:
		return uint32(v), nil
	}
	return 0, fmt.Errorf("%T is not an integer", arg)
}

func toString(arg interface{}) (string, error) {
	switch v := arg.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("%T is not a string", arg)
}

func toChar(arg interface{}) (string, error) {
	switch v := arg.(type) {
	case byte:
		return string([]byte{v}), nil
	case rune:
		return string(v), nil
	}
	return "", fmt.Errorf("%T is not a character", arg)
}

// Printf writes format to w. Verbs:
//
//	%d  signed decimal, always with sign
//	%u  unsigned decimal
//	%x  hex padded to 2, 4 or 8 digits depending on the value
//	%b  binary padded to 8, 16 or 32 digits depending on the value
//	%c  a byte or rune
//	%s  a string, []byte or fmt.Stringer
//
// Any other character after '%' is written together with the '%'. Integers
// are truncated to 32 bits.
func Printf(w io.Writer, format string, args ...interface{}) error {
	next := func() (interface{}, error) {
		if len(args) == 0 {
			return nil, ErrMissingArg
		}
		arg := args[0]
		args = args[1:]
		return arg, nil
	}

	var lit []byte
	flush := func() error {
		if len(lit) == 0 {
			return nil
		}
		_, err := w.Write(lit)
		lit = lit[:0]
		return err
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			lit = append(lit, c)
			continue
		}

		i++
		if i == len(format) {
			lit = append(lit, '%')
			break
		}

		verb := format[i]
		switch verb {
		case 'd', 'u', 'x', 'b', 'c', 's':
		default:
			lit = append(lit, '%', verb)
			continue
		}

		if err := flush(); err != nil {
			return err
		}

		arg, err := next()
		if err != nil {
			return fmt.Errorf("%%%c: %w", verb, err)
		}

		switch verb {
		case 'd', 'u', 'x', 'b':
			v, err := toUint32(arg)
			if err != nil {
				return fmt.Errorf("%%%c: %w", verb, err)
			}

			switch verb {
			case 'd':
				err = WriteSigned(w, int32(v), 0)
			case 'u':
				err = WriteUnsigned(w, v, 10, 0)
			case 'x':
				err = WriteUnsigned(w, v, 16, width(v, 4))
			case 'b':
				err = WriteUnsigned(w, v, 2, width(v, 1))
			}
			if err != nil {
				return err
			}

		case 'c', 's':
			var s string
			if verb == 'c' {
				s, err = toChar(arg)
			} else {
				s, err = toString(arg)
			}
			if err != nil {
				return fmt.Errorf("%%%c: %w", verb, err)
			}
			if _, err := io.WriteString(w, s); err != nil {
				return err
			}
		}
	}

	return flush()
}
