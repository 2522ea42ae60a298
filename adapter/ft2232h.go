package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mklimuk/eeprog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// FTDI vendor and product codes for the FT2232H dual-channel bridge.
const (
	FTDIVendorID     = 0x0403
	FT2232HProductID = 0x6010
)

// FTDIDeviceEnv selects among several attached bridges: either a plain
// zero-based index or a pyftdi-style ftdi:///N URL (1-based).
const FTDIDeviceEnv = "FTDI_DEVICE"

// DefaultClock is a conservative bus clock every I2C EEPROM accepts.
const DefaultClock = 100 * physic.KiloHertz

var _ eeprog.I2CBus = &FT2232H{}

type FT2232HOpts struct {
	Clock physic.Frequency
	Index int
}

type FT2232HOpt func(*FT2232HOpts)

func WithClock(clock physic.Frequency) FT2232HOpt {
	return func(o *FT2232HOpts) {
		o.Clock = clock
	}
}

func WithFTDIIndex(index int) FT2232HOpt {
	return func(o *FT2232HOpts) {
		o.Index = index
	}
}

// FT2232H exposes channel A of the bridge as an I2C master. The MPSSE
// engine behind it serializes transactions, the mutex only guards against
// concurrent callers of this wrapper.
type FT2232H struct {
	mx  sync.Mutex
	dev *ftdi.FT232H
	bus i2c.BusCloser
}

// NewFT2232H scans attached FTDI devices, claims the selected FT2232H and
// opens its I2C port.
func NewFT2232H(opts ...FT2232HOpt) (*FT2232H, error) {
	config := FT2232HOpts{
		Clock: DefaultClock,
		Index: ftdiIndexFromEnv(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	all := ftdi.All()
	var matches []*ftdi.FT232H
	info := ftdi.Info{}
	for _, dev := range all {
		dev.Info(&info)
		if info.VenID != FTDIVendorID || info.DevID != FT2232HProductID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			matches = append(matches, ft)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("FT2232H device not found (%d FTDI devices attached)", len(all))
	}
	if config.Index < 0 || config.Index >= len(matches) {
		return nil, fmt.Errorf("no FT2232H with index %d (%d attached)", config.Index, len(matches))
	}
	ft := matches[config.Index]
	bus, err := ft.I2C(gpio.PullUp)
	if err != nil {
		return nil, fmt.Errorf("could not open I2C port: %w", err)
	}
	if err = bus.SetSpeed(config.Clock); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("could not set bus clock to %s: %w", config.Clock, err)
	}
	slog.Debug("FT2232H I2C port open", "index", config.Index, "clock", config.Clock.String())
	return &FT2232H{dev: ft, bus: bus}, nil
}

func (f *FT2232H) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	err := f.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("write to %#x failed: %w", address, err)
	}
	return nil
}

func (f *FT2232H) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	err := f.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("read from %#x failed: %w", address, err)
	}
	return nil
}

func (f *FT2232H) Release(ctx context.Context) error {
	return nil
}

func (f *FT2232H) Close() error {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.bus.Close()
}

func (f *FT2232H) String() string {
	if f.dev == nil {
		return "FT2232H"
	}
	return f.dev.String()
}

func ftdiIndexFromEnv() int {
	raw := strings.TrimSpace(os.Getenv(FTDIDeviceEnv))
	if raw == "" {
		return 0
	}
	if rest, ok := strings.CutPrefix(raw, "ftdi://"); ok {
		// pyftdi URLs count devices from 1
		rest = strings.Trim(rest, "/")
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return n - 1
		}
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}
	return 0
}
