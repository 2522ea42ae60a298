package main

import (
	"os"

	"github.com/mklimuk/eeprog"
	"github.com/mklimuk/eeprog/cmd/eeprog/console"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var devicesCmd = cli.Command{
	Name:  "devices",
	Usage: "list supported device profiles",
	Action: func(c *cli.Context) error {
		enc := yaml.NewEncoder(os.Stdout)
		defer func() { _ = enc.Close() }()
		err := enc.Encode(eeprog.Profiles())
		if err != nil {
			return console.Exit(1, "encoding error: %s", err)
		}
		return nil
	},
}
