package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "eeprog"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "I2C EEPROM programming tool"
	app.UsageText = "eeprog [options] device [i2c_address]\n   eeprog command [command options] [arguments]"
	app.ArgsUsage = "device [i2c_address]"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "programming mode: file, manual, f, m (interactive menu when omitted)",
		},
		&cli.StringFlag{
			Name:    "zlimage",
			Aliases: []string{"zi"},
			Usage:   "image file to write to the eeprom",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "image file layout: auto, zl, pairs, ihex",
			Value: "auto",
		},
		&cli.BoolFlag{
			Name:  "no-verify",
			Usage: "skip the read-back comparison after flashing",
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "bus adapter: ft2232h, mcp2221, generic, nanopi",
			EnvVars: []string{"EEPROG_ADAPTER"},
			Value:   "ft2232h",
		},
		&cli.StringFlag{
			Name:    "bus",
			Aliases: []string{"b"},
			Usage:   "bus name for the generic adapter (/dev/i2c-1, 1)",
		},
		&cli.Int64Flag{
			Name:  "clock",
			Usage: "bus clock in kHz (ft2232h only)",
			Value: 100,
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "enable debug logging",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("debug") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Action = runProgram
	app.Commands = cli.Commands{
		&readCmd,
		&verifyCmd,
		&scanCmd,
		&devicesCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}
