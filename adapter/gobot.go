package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/eeprog"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/nanopi"
)

var _ eeprog.I2CBus = &GobotBus{}

// GobotBus adapts a gobot I2C connector so an SBC-native bus can stand in
// for the USB bridge when the programmer runs directly on the board.
type GobotBus struct {
	mx       sync.Mutex
	adaptor  i2c.Connector
	busNr    int
	finalize func() error
	conns    map[byte]i2c.Connection
}

func NewGobotBus(adaptor i2c.Connector, busNr int) *GobotBus {
	return &GobotBus{
		adaptor: adaptor,
		busNr:   busNr,
		conns:   make(map[byte]i2c.Connection),
	}
}

// NewNanoPiBus opens the onboard bus of a NanoPi NEO.
func NewNanoPiBus() (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	bus := NewGobotBus(npi, npi.DefaultI2cBus())
	bus.finalize = npi.I2cBusAdaptor.Finalize
	return bus, nil
}

func (g *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	g.mx.Lock()
	defer g.mx.Unlock()
	conn, err := g.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Write(buffer)
	if err != nil {
		return fmt.Errorf("write to %#x failed: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %#x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (g *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	g.mx.Lock()
	defer g.mx.Unlock()
	conn, err := g.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("read from %#x failed: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %#x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (g *GobotBus) Release(ctx context.Context) error {
	return nil
}

func (g *GobotBus) Close() error {
	g.mx.Lock()
	defer g.mx.Unlock()
	var last error
	for addr, conn := range g.conns {
		if err := conn.Close(); err != nil {
			last = fmt.Errorf("could not close connection to %#x: %w", addr, err)
		}
	}
	g.conns = make(map[byte]i2c.Connection)
	if g.finalize != nil {
		if err := g.finalize(); err != nil {
			return fmt.Errorf("adaptor finalize error: %w", err)
		}
	}
	return last
}

func (g *GobotBus) connection(address byte) (i2c.Connection, error) {
	if conn, ok := g.conns[address]; ok {
		return conn, nil
	}
	conn, err := g.adaptor.GetI2cConnection(int(address), g.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not get connection to %#x on bus %d: %w", address, g.busNr, err)
	}
	g.conns[address] = conn
	return conn, nil
}
