package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mklimuk/eeprog/adapter"
	"github.com/mklimuk/eeprog/cmd/eeprog/console"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "inspect attached USB bridges",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list all HID devices",
	Action: func(c *cli.Context) error {
		devices := hid.Enumerate(0, 0)

		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")

		for _, dev := range devices {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		_ = w.Flush()
		return nil
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "detect supported I2C bridges",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "VENDOR\tPRODUCT\tDEVICE\tDETAILS\n")

		// The MCP2221 enumerates as a HID-class device.
		for _, dev := range hid.Enumerate(adapter.MCPVendorID, adapter.MCPProductID) {
			_, _ = fmt.Fprintf(w, "%#x\t%#x\t%s\t%s\n", dev.VendorID, dev.ProductID, "MCP2221", dev.Path)
		}

		// FTDI parts are not HID-class; they come up through the host driver.
		if _, err := host.Init(); err != nil {
			return console.Exit(1, "could not init host: %s", err)
		}
		var info ftdi.Info
		for _, dev := range ftdi.All() {
			dev.Info(&info)
			name := "FTDI"
			if info.VenID == adapter.FTDIVendorID && info.DevID == adapter.FT2232HProductID {
				name = "FT2232H"
			}
			_, _ = fmt.Fprintf(w, "%#x\t%#x\t%s\t%s\n", info.VenID, info.DevID, name, info.Type)
		}
		_ = w.Flush()
		return nil
	},
}
