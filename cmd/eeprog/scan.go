package main

import (
	"fmt"
	"strings"

	"github.com/mklimuk/eeprog"
	"github.com/mklimuk/eeprog/cmd/eeprog/console"

	"github.com/urfave/cli/v2"
)

// 7-bit addresses below 0x03 and above 0x77 are reserved by the bus
// specification and never carry slaves.
const (
	scanFirst = 0x03
	scanLast  = 0x77
)

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe the bus for acknowledging slaves",
	Action: func(c *cli.Context) error {
		bus, closeBus, err := openBus(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer func() {
			if err := closeBus(); err != nil {
				console.Warnf("bus close error: %s", err)
			}
		}()
		ctx := console.SetVerbose(c.Context, c.Bool("debug"))
		found := 0
		var grid strings.Builder
		grid.WriteString("     0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f\n")
		for row := 0x00; row <= 0x70; row += 0x10 {
			fmt.Fprintf(&grid, "%02x:", row)
			for col := 0; col < 16; col++ {
				addr := row + col
				if addr < scanFirst || addr > scanLast {
					grid.WriteString("   ")
					continue
				}
				if err := eeprog.Probe(ctx, bus, byte(addr)); err != nil {
					if console.IsVerbose(ctx) {
						console.Warnf("%#x: %s", addr, err)
					}
					grid.WriteString(" --")
					continue
				}
				fmt.Fprintf(&grid, " %02x", addr)
				found++
			}
			grid.WriteByte('\n')
		}
		console.Print(grid.String())
		if found == 0 {
			console.Warn("no slaves acknowledged")
			return nil
		}
		console.Infof("%d slave(s) acknowledged", found)
		return nil
	},
}
