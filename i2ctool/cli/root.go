// Package cli implements the i2ctool commands. Every command runs against a
// local software bus or, with --server, against a remote busserver.
package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Bus      string
	Config   string
	Speed    string
	Server   string
	User     string
	Password string
	Discover bool
	Serial   string
	Baud     int
	Verbose  bool

	// target replaces the bus selected by flags, for tests.
	target Target
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "i2ctool",
		Short: "Software two-wire bus tool",
		Long: `Drive devices on a bit-banged two-wire bus.

The bus is either opened locally from a path (--bus) or a configuration
file (--config), or reached through a busserver (--server, --discover).

Bus paths:
  periph:<scl>:<sda>[:<delay>]
  mcp2221a:<serial>:<sclGP>:<sdaGP>[:<delay>]
  sim:<addr>[,<addr>...]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Server != "" && opts.Discover {
				return errors.New("--server and --discover are exclusive")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Bus, "bus", "b", "", "bus path")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "YAML bus configuration")
	cmd.PersistentFlags().StringVar(&opts.Speed, "speed", "", "bus speed, e.g. 100kHz (local buses only)")
	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", "", "busserver URL, e.g. http://host:8421/0")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "busserver user name")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "busserver password")
	cmd.PersistentFlags().BoolVar(&opts.Discover, "discover", false, "find a busserver over mDNS, --bus filters by name")
	cmd.PersistentFlags().StringVar(&opts.Serial, "serial", "", "write output to this serial port instead of stdout")
	cmd.PersistentFlags().IntVar(&opts.Baud, "baud", 115200, "serial port baud rate")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every bus transaction")

	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewReadRegCommand(opts))
	cmd.AddCommand(NewWriteRegCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewClockOutCommand(opts))
	cmd.AddCommand(NewSegmentCommand(opts))
	cmd.AddCommand(NewSayCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}
