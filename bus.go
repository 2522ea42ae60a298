package eeprog

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")
var ErrNack = fmt.Errorf("no acknowledge from I2C slave")

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

type I2CDevice interface {
	BusReader
	BusWriter
}

// Probe checks that a slave acknowledges its address by issuing an empty
// write transaction. Transports that can tell a missing acknowledge apart
// from other failures report it as ErrNack; the rest surface their own
// transfer errors.
func Probe(ctx context.Context, bus I2CBus, address byte) error {
	err := bus.WriteToAddr(ctx, address, nil)
	if err != nil {
		return fmt.Errorf("slave %#x did not respond: %w", address, err)
	}
	return nil
}
