package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BertoldVdb/softi2c/crc"
	"github.com/BertoldVdb/softi2c/serialfmt"
)

func NewScanCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List the devices that acknowledge their address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			found, err := s.Scan()
			if err != nil {
				return err
			}
			return writeScan(s, found)
		},
	}
}

// writeScan prints a grid of the address space, found addresses in hex,
// probed but silent ones as "--" and the reserved ranges blank.
func writeScan(s *session, found []uint8) error {
	present := make(map[uint8]bool)
	for _, addr := range found {
		present[addr] = true
	}

	if err := s.printf("   "); err != nil {
		return err
	}
	for col := uint8(0); col < 16; col++ {
		if err := s.printf(" %x", col); err != nil {
			return err
		}
	}

	for row := uint8(0); row < 8; row++ {
		if err := s.printf("\n%x:", row<<4); err != nil {
			return err
		}
		for col := uint8(0); col < 16; col++ {
			addr := row<<4 | col

			var err error
			switch {
			case addr < 0x08 || addr > 0x77:
				err = s.printf("   ")
			case present[addr]:
				err = s.printf(" %x", addr)
			default:
				err = s.printf(" --")
			}
			if err != nil {
				return err
			}
		}
	}

	return s.printf("\n")
}

func NewReadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <addr>",
		Short: "Read one byte",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := s.addr(args[0])
			if err != nil {
				return err
			}

			v, err := s.ReadByte(addr)
			if err != nil {
				return err
			}
			return s.printf("%x\n", v)
		},
	}
}

func NewWriteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write <addr> <byte>...",
		Short: "Write bytes in one transaction",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := s.addr(args[0])
			if err != nil {
				return err
			}

			data := make([]byte, 0, len(args)-1)
			for _, arg := range args[1:] {
				b, err := parseByte(arg, "byte")
				if err != nil {
					return err
				}
				data = append(data, b)
			}

			if len(data) == 1 {
				return s.WriteByte(addr, data[0])
			}
			return s.WriteMultiBytes(addr, data)
		},
	}
}

func NewReadRegCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "readreg <addr> <reg>",
		Short: "Read a register",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := s.addr(args[0])
			if err != nil {
				return err
			}
			reg, err := parseByte(args[1], "register")
			if err != nil {
				return err
			}

			v, err := s.ReadReg(addr, reg)
			if err != nil {
				return err
			}
			return s.printf("%x\n", v)
		},
	}
}

func NewWriteRegCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "writereg <addr> <reg> <value>",
		Short: "Write a register",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := s.addr(args[0])
			if err != nil {
				return err
			}
			reg, err := parseByte(args[1], "register")
			if err != nil {
				return err
			}
			value, err := parseByte(args[2], "value")
			if err != nil {
				return err
			}

			return s.WriteReg(addr, reg, value)
		},
	}
}

type DumpOptions struct {
	*RootOptions
	Start int
	Count int
}

func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <addr>",
		Short: "Read a range of registers",
		Long: `Read registers one by one and print them sixteen to a row,
followed by the CRC-32/MPEG-2 of the data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Start, "start", 0, "first register")
	cmd.Flags().IntVar(&opts.Count, "count", 256, "number of registers")

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command, target string) error {
	if opts.Start < 0 || opts.Count < 1 || opts.Start+opts.Count > 256 {
		return fmt.Errorf("register range %d+%d outside 0..255", opts.Start, opts.Count)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	addr, err := s.addr(target)
	if err != nil {
		return err
	}

	data := make([]byte, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		reg := uint8(opts.Start + i)

		v, err := s.ReadReg(addr, reg)
		if err != nil {
			return err
		}
		data = append(data, v)

		if i%16 == 0 {
			if i > 0 {
				if err := s.printf("\n"); err != nil {
					return err
				}
			}
			if err := s.printf("%x:", reg); err != nil {
				return err
			}
		}
		if err := s.printf(" %x", v); err != nil {
			return err
		}
	}

	if err := s.printf("\ncrc "); err != nil {
		return err
	}
	if err := serialfmt.WriteUnsigned(s.out, crc.Checksum(data), 16, 8); err != nil {
		return err
	}
	return s.printf("\n")
}
