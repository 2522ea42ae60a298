// Package zl30267 drives the configuration EEPROM behind a Microsemi
// ZL30267 clock generator.
//
// The part tunnels an SPI-flash style command set over I2C: every
// transaction opens with a command byte (WRITE 0x02, READ 0x03, WREN 0x06)
// followed by a two-byte big-endian offset where one applies. The write
// latch must be re-armed with WREN before every page write, and a session
// has to start with Unlock before the EEPROM accepts commands at all.
package zl30267

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mklimuk/eeprog"
)

// DefaultAddress is the 7-bit slave address with both address pins low.
const DefaultAddress = 0x74

const (
	cmdWrite = 0x02 // WRITE: command, offset, payload
	cmdRead  = 0x03 // READ: command, offset, then clock data out
	cmdWREN  = 0x06 // WREN: arm the write latch, single byte
)

const (
	pageSize = 32
	addrBits = 12

	// the part exposes no busy flag over I2C, writes are paced blind
	writeCycle = 10 * time.Millisecond
)

type Opts struct {
	Address byte
}

type Opt func(*Opts)

func WithAddress(address byte) Opt {
	return func(o *Opts) {
		o.Address = address
	}
}

type Device struct {
	transport eeprog.I2CBus
	addr      byte
}

func New(transport eeprog.I2CBus, opts ...Opt) *Device {
	config := Opts{Address: DefaultAddress}
	for _, opt := range opts {
		opt(&config)
	}
	return &Device{transport: transport, addr: config.Address}
}

func (d *Device) Address() byte { return d.addr }

func (d *Device) PageSize() int { return pageSize }

func (d *Device) Capacity() int { return 1 << addrBits }

// Unlock writes 0x80 at offset 0x0000, routing subsequent commands to the
// internal EEPROM. Required once per session, before any other command.
// The unlock write itself does not take a WREN.
func (d *Device) Unlock(ctx context.Context) error {
	if err := d.transport.WriteToAddr(ctx, d.addr, []byte{cmdWrite, 0x00, 0x00, 0x80}); err != nil {
		return fmt.Errorf("zl30267: unlock failed: %w", err)
	}
	return nil
}

// WritePage arms the write latch and issues one write transaction.
func (d *Device) WritePage(ctx context.Context, offset uint16, data []byte) error {
	if int(offset) >= d.Capacity() {
		return fmt.Errorf("zl30267: offset %#x out of range", offset)
	}
	if len(data) == 0 || len(data) > pageSize {
		return fmt.Errorf("zl30267: invalid page write size %d", len(data))
	}
	if space := pageSize - int(offset)%pageSize; len(data) > space {
		return fmt.Errorf("zl30267: %d bytes at %#x cross a page boundary", len(data), offset)
	}
	if err := d.writeEnable(ctx); err != nil {
		return err
	}
	buf := make([]byte, 3+len(data))
	buf[0] = cmdWrite
	binary.BigEndian.PutUint16(buf[1:3], offset)
	copy(buf[3:], data)
	if err := d.transport.WriteToAddr(ctx, d.addr, buf); err != nil {
		return fmt.Errorf("zl30267: page write at %#x failed: %w", offset, err)
	}
	return nil
}

// WriteAt writes an arbitrary span, splitting it into page-aligned bursts
// with a write-cycle pause after each one.
func (d *Device) WriteAt(ctx context.Context, offset uint16, data []byte) error {
	if int(offset)+len(data) > d.Capacity() {
		return fmt.Errorf("zl30267: write range %#x+%d exceeds device capacity", offset, len(data))
	}
	for len(data) > 0 {
		chunk := data
		if space := pageSize - int(offset)%pageSize; len(chunk) > space {
			chunk = chunk[:space]
		}
		if err := d.WritePage(ctx, offset, chunk); err != nil {
			return err
		}
		timer := time.NewTimer(writeCycle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		offset += uint16(len(chunk))
		data = data[len(chunk):]
	}
	return nil
}

// Read issues the READ command with the start offset, then clocks
// len(buffer) bytes out.
func (d *Device) Read(ctx context.Context, offset uint16, buffer []byte) error {
	if int(offset) >= d.Capacity() {
		return fmt.Errorf("zl30267: offset %#x out of range", offset)
	}
	header := []byte{cmdRead, byte(offset >> 8), byte(offset)}
	if err := d.transport.WriteToAddr(ctx, d.addr, header); err != nil {
		return fmt.Errorf("zl30267: read command at %#x failed: %w", offset, err)
	}
	if err := d.transport.ReadFromAddr(ctx, d.addr, buffer); err != nil {
		return fmt.Errorf("zl30267: read at %#x failed: %w", offset, err)
	}
	return nil
}

func (d *Device) writeEnable(ctx context.Context) error {
	if err := d.transport.WriteToAddr(ctx, d.addr, []byte{cmdWREN}); err != nil {
		return fmt.Errorf("zl30267: write enable failed: %w", err)
	}
	return nil
}
