package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mklimuk/eeprog"
	"github.com/mklimuk/eeprog/adapter"
	"github.com/mklimuk/eeprog/cmd/eeprog/console"
	"github.com/mklimuk/eeprog/flash"
	genbus "github.com/mklimuk/eeprog/i2c"
	"github.com/mklimuk/eeprog/image"
	"github.com/mklimuk/eeprog/memory/mc24lc32"
	"github.com/mklimuk/eeprog/memory/zl30267"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"
)

// flashTarget is the device surface shared by both memory drivers: what the
// write sequencer needs plus arbitrary-span writes for the manual console.
type flashTarget interface {
	flash.Target
	WriteAt(ctx context.Context, offset uint16, data []byte) error
	Address() byte
}

// session ties a bus adapter to the device driver selected by the CLI
// arguments. It lives for one invocation.
type session struct {
	profile  eeprog.Profile
	bus      eeprog.I2CBus
	target   flashTarget
	mc       *mc24lc32.Device
	zl       *zl30267.Device
	closeBus func() error
}

func (s *session) Close() {
	if s.closeBus == nil {
		return
	}
	if err := s.closeBus(); err != nil {
		console.Warnf("bus close error: %s", err)
	}
}

// unlock routes ZL30267 commands to the internal EEPROM. Other devices need
// no session setup.
func (s *session) unlock(ctx context.Context) error {
	if s.zl == nil {
		return nil
	}
	return s.zl.Unlock(ctx)
}

func runProgram(c *cli.Context) error {
	if c.Args().Len() == 0 {
		_ = cli.ShowAppHelp(c)
		return console.Exit(1, "missing device argument, expected one of: %s", strings.Join(eeprog.ProfileNames(), ", "))
	}
	ses, err := openSession(c)
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	defer ses.Close()

	mode := c.String("mode")
	if mode == "" {
		var quit bool
		mode, quit, err = pickMode()
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if quit {
			console.Print("Program quit")
			return nil
		}
	}
	switch mode {
	case "file", "f":
		return fileMode(c, ses)
	case "manual", "m":
		return manualMode(c, ses)
	default:
		return console.Exit(1, "invalid mode %q, expected file, manual, f or m", mode)
	}
}

// openSession resolves the device profile and slave address, opens the bus
// adapter and polls the slave before handing the session out.
func openSession(c *cli.Context) (*session, error) {
	profile, err := eeprog.LookupProfile(c.Args().Get(0))
	if err != nil {
		return nil, err
	}
	address := profile.DefaultAddr
	if c.Args().Len() > 1 {
		address, err = parseSlaveAddress(c.Args().Get(1))
		if err != nil {
			return nil, err
		}
	}
	bus, closeBus, err := openBus(c)
	if err != nil {
		return nil, err
	}
	ses := &session{profile: profile, bus: bus, closeBus: closeBus}
	switch profile.Name {
	case eeprog.DeviceMC24LC32:
		ses.mc = mc24lc32.New(bus, mc24lc32.WithAddress(address))
		ses.target = ses.mc
	case eeprog.DeviceZL30267:
		ses.zl = zl30267.New(bus, zl30267.WithAddress(address))
		ses.target = ses.zl
	default:
		ses.Close()
		return nil, fmt.Errorf("no driver for device %s", profile.Name)
	}
	if err = eeprog.Probe(c.Context, bus, address); err != nil {
		ses.Close()
		return nil, fmt.Errorf("could not poll slave: %w", err)
	}
	console.Infof("successful connection to EEPROM slave %#x", address)
	return ses, nil
}

func openBus(c *cli.Context) (eeprog.I2CBus, func() error, error) {
	name := strings.ToLower(strings.TrimSpace(c.String("adapter")))
	switch name {
	case "", "ft2232h", "ftdi":
		clock := physic.Frequency(c.Int64("clock")) * physic.KiloHertz
		bridge, err := adapter.NewFT2232H(adapter.WithClock(clock))
		if err != nil {
			return nil, nil, err
		}
		return bridge, bridge.Close, nil
	case "mcp2221":
		a := adapter.NewMCP2221()
		return a, a.Close, nil
	case "generic", "i2cdev":
		bus, err := genbus.NewGenericBus(c.String("bus"))
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	case "nanopi":
		bus, err := adapter.NewNanoPiBus()
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q, expected ft2232h, mcp2221, generic or nanopi", name)
	}
}

// fileMode parses the image file and flashes it page by page, then reads
// everything back unless verification is disabled.
func fileMode(c *cli.Context, ses *session) error {
	ctx := c.Context
	path := strings.TrimSpace(c.String("zlimage"))
	if path == "" {
		answer, err := console.Prompt("Input file path to use: ")
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		path = strings.TrimSpace(answer)
		if path == "" {
			return console.Exit(1, "no image file given")
		}
	}
	format, err := parseFormat(c.String("format"))
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	if format == image.FormatAuto && ses.profile.Name == eeprog.DeviceZL30267 {
		// vendor exports are the only sanctioned input for this part
		format = image.FormatZL
	}
	img, err := image.ParseFile(path, image.WithFormat(format), image.WithLimit(ses.profile.Capacity()))
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	console.Infof("parsed %s image %s: %d bytes", img.Format, path, img.Len())
	slog.Debug("image data", "dump", hex.Dump(img.Bytes()))

	if err = ses.unlock(ctx); err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	verify := !c.Bool("no-verify")
	seq := flash.NewSequencer(ses.target,
		flash.WithDelay(ses.profile.WriteCycle),
		flash.WithVerify(verify),
		flash.WithProgress(func(written, total int) {
			console.Printf("\rwriting %d/%d bytes", written, total)
		}),
	)
	summary, err := seq.Run(ctx, img.Records)
	console.Print("")
	if err != nil {
		return console.Exit(1, "flash failed: %s", console.Red(err))
	}
	console.Infof("wrote %d bytes in %d pages in %s", summary.Written, summary.Pages, summary.Elapsed.Round(time.Millisecond))
	if !verify {
		return nil
	}
	if c.Bool("debug") {
		start, size := recordSpan(img.Records)
		readback := make([]byte, size)
		if err := flash.ReadSpan(ctx, ses.target, start, readback); err != nil {
			console.Warnf("read back dump failed: %s", err)
		} else {
			slog.Debug("eeprom content after flash", "offset", fmt.Sprintf("%#x", start), "dump", hex.Dump(readback))
		}
	}
	if summary.Ok() {
		console.Print(console.Green("successful eeprom flash"))
		return nil
	}
	for _, m := range summary.Mismatches {
		console.Warnf("verify: %s", m)
	}
	console.Warnf("eeprom flash completed with %d verify mismatches", len(summary.Mismatches))
	return nil
}

// recordSpan returns the smallest [offset, offset+size) window covering all
// records. Callers guarantee records is not empty.
func recordSpan(records []image.WriteRecord) (uint16, int) {
	first, last := records[0].Offset, records[0].Offset
	for _, rec := range records {
		if rec.Offset < first {
			first = rec.Offset
		}
		if rec.Offset > last {
			last = rec.Offset
		}
	}
	return first, int(last-first) + 1
}
