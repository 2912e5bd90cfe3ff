package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BertoldVdb/softi2c/busserver/busclient"
	"github.com/BertoldVdb/softi2c/segment"
	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/xfs5152ce"
)

func NewClockOutCommand(opts *RootOptions) *cobra.Command {
	var cycles int

	cmd := &cobra.Command{
		Use:   "clockout",
		Short: "Toggle the clock line to check the wiring with a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			bus, ok := s.local()
			if !ok {
				return errors.New("clockout needs a local bus")
			}

			return bus.Do(func(m *softi2c.Master) error {
				m.ClockTestOut(cycles)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&cycles, "cycles", "n", 1000, "number of clock periods")

	return cmd
}

func NewSegmentCommand(opts *RootOptions) *cobra.Command {
	var polarity string

	cmd := &cobra.Command{
		Use:   "segment <addr> <text>",
		Short: "Show text on an eight segment display behind an 8-bit port expander",
		Long: `Encode text for an eight segment display and write one byte per digit to
the expander. Supported glyphs are 0-9, C, E, F, H, L, P and space; a '.'
lights the decimal point of the digit before it.`,
		Args: cobra.ExactArgs(2),
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

			name := polarity
			if d, ok := s.device(args[0]); ok && name == "" {
				name = d.Polarity
			}
			if name == "" {
				name = segment.CommonCathode.String()
			}
			p, err := segment.ParsePolarity(name)
			if err != nil {
				return err
			}

			data, err := p.EncodeString(args[1])
			if err != nil {
				return err
			}

			if len(data) == 1 {
				return s.WriteByte(addr, data[0])
			}
			return s.WriteMultiBytes(addr, data)
		},
	}

	cmd.Flags().StringVar(&polarity, "polarity", "", "anode or cathode, default from the configuration or cathode")

	return cmd
}

type SayOptions struct {
	*RootOptions
	Addr     string
	Encoding string
	Volume   int
	Rate     int
	Speaker  int
	Wait     time.Duration
}

func NewSayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "say <text>...",
		Short: "Speak text on an XFS5152CE speech chip",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSay(opts, cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "0x40", "chip address or configured device name")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "unicode", "text encoding: gb2312, gbk, big5 or unicode")
	cmd.Flags().IntVar(&opts.Volume, "volume", -1, "volume 0..9")
	cmd.Flags().IntVar(&opts.Rate, "rate", -1, "speech rate 0..9")
	cmd.Flags().IntVar(&opts.Speaker, "speaker", 0, "voice number")
	cmd.Flags().DurationVar(&opts.Wait, "wait", 0, "wait up to this long for the chip to finish")

	return cmd
}

func runSay(opts *SayOptions, cmd *cobra.Command, text string) error {
	enc, err := xfs5152ce.ParseEncoding(opts.Encoding)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	addr, err := s.addr(opts.Addr)
	if err != nil {
		return err
	}

	cfg := xfs5152ce.Config{Address: addr, Encoding: enc}
	if opts.Verbose {
		cfg.Log = func(format string, params ...interface{}) {
			cmd.PrintErrf(format+"\n", params...)
		}
	}
	chip := xfs5152ce.New(s, cfg)

	if err := chip.Init(); err != nil {
		return err
	}
	if opts.Volume >= 0 {
		if err := chip.Volume(opts.Volume); err != nil {
			return err
		}
	}
	if opts.Rate >= 0 {
		if err := chip.Speed(opts.Rate); err != nil {
			return err
		}
	}
	if opts.Speaker != 0 {
		if err := chip.Speaker(xfs5152ce.Speaker(opts.Speaker)); err != nil {
			return err
		}
	}

	if err := chip.Speak(text); err != nil {
		return err
	}

	for deadline := time.Now().Add(opts.Wait); opts.Wait > 0; {
		ready, err := chip.Ready()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if !time.Now().Before(deadline) {
			return xfs5152ce.ErrTimeout
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

func NewLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the recent transactions of a busserver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			c, ok := s.target().(*busclient.Client)
			if !ok {
				return errors.New("log needs --server or --discover")
			}

			entries, err := c.Log()
			if err != nil {
				return err
			}

			for _, e := range entries {
				err := s.printf("%s %s %x tx=%s rx=%s %s\n",
					e.Time.Format(time.RFC3339), e.Op, e.Addr, e.Tx, e.Rx, e.Error)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
