package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/mklimuk/eeprog/cmd/eeprog/console"
	"github.com/mklimuk/eeprog/flash"

	"github.com/urfave/cli/v2"
)

var readCmd = cli.Command{
	Name:      "read",
	Usage:     "read a span of the eeprom and dump it",
	ArgsUsage: "device [i2c_address]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "offset",
			Aliases: []string{"o"},
			Usage:   "start offset, hex with optional 0x prefix",
			Value:   "0",
		},
		&cli.IntFlag{
			Name:    "length",
			Aliases: []string{"n"},
			Usage:   "number of bytes to read, 0 reads to the end of the device",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "write the dump to a file instead of stdout",
		},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() == 0 {
			return console.Exit(1, "missing device argument")
		}
		ses, err := openSession(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer ses.Close()
		offset, err := parseWordAddress(c.String("offset"), ses.profile.Capacity())
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		length := c.Int("length")
		if length <= 0 {
			length = ses.profile.Capacity() - int(offset)
		}
		if err = ses.unlock(c.Context); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		buffer := make([]byte, length)
		if err = flash.ReadSpan(c.Context, ses.target, offset, buffer); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		out := c.String("out")
		if out == "" {
			console.Printf("%s", hex.Dump(buffer))
			return nil
		}
		if _, err = os.Stat(out); err == nil {
			answer, err := console.YesOrNo(fmt.Sprintf("file %s exists, overwrite?", out))
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			if answer != console.Yes {
				console.Print("aborted")
				return nil
			}
		}
		if err = os.WriteFile(out, buffer, 0o644); err != nil {
			return console.Exit(1, "could not write %s: %s", out, console.Red(err))
		}
		console.Infof("wrote %d bytes to %s", length, out)
		return nil
	},
}
