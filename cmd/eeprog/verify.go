package main

import (
	"strings"

	"github.com/mklimuk/eeprog"
	"github.com/mklimuk/eeprog/cmd/eeprog/console"
	"github.com/mklimuk/eeprog/flash"
	"github.com/mklimuk/eeprog/image"

	"github.com/urfave/cli/v2"
)

var verifyCmd = cli.Command{
	Name:      "verify",
	Usage:     "compare eeprom content against an image file without writing",
	ArgsUsage: "device [i2c_address]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "zlimage",
			Aliases:  []string{"zi"},
			Usage:    "image file to compare against",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "image file layout: auto, zl, pairs, ihex",
			Value: "auto",
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
		format, err := parseFormat(c.String("format"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if format == image.FormatAuto && ses.profile.Name == eeprog.DeviceZL30267 {
			format = image.FormatZL
		}
		path := strings.TrimSpace(c.String("zlimage"))
		img, err := image.ParseFile(path, image.WithFormat(format), image.WithLimit(ses.profile.Capacity()))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if err = ses.unlock(c.Context); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		summary, err := flash.NewSequencer(ses.target).Verify(c.Context, img.Records)
		if err != nil {
			return console.Exit(1, "verification failed: %s", console.Red(err))
		}
		if summary.Ok() {
			console.Infof("%s, %d bytes match", console.Green("verification passed"), img.Len())
			return nil
		}
		for _, m := range summary.Mismatches {
			console.Warnf("%s", m)
		}
		return console.Exit(1, "%s: %d of %d bytes differ", console.Red("verification failed"), len(summary.Mismatches), img.Len())
	},
}
