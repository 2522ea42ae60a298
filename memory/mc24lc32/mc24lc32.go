// Package mc24lc32 drives the Microchip 24LC32 32-Kbit I2C EEPROM.
//
// The array is 4096 bytes behind a two-byte big-endian word address
// (datasheet Figure 6-1, only the low 12 bits are decoded). A write
// transaction carries the word address followed by up to one page
// (32 bytes) of payload; the device wraps inside the page when a burst
// crosses a boundary, so callers keep page writes aligned. A random read
// first sets the word address with a write transaction, then clocks data
// out; the internal address counter rolls over at the end of the array.
package mc24lc32

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mklimuk/eeprog"
)

// DefaultAddress is the 7-bit slave address with A2..A0 strapped low.
const DefaultAddress = 0x50

const (
	pageSize = 32
	addrBits = 12

	// datasheet tWC, worst case
	writeCycle = 5 * time.Millisecond
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

// WritePage issues a single write transaction: word address, then payload.
func (d *Device) WritePage(ctx context.Context, offset uint16, data []byte) error {
	if int(offset) >= d.Capacity() {
		return fmt.Errorf("mc24lc32: offset %#x out of range", offset)
	}
	if len(data) == 0 || len(data) > pageSize {
		return fmt.Errorf("mc24lc32: invalid page write size %d", len(data))
	}
	if space := pageSize - int(offset)%pageSize; len(data) > space {
		return fmt.Errorf("mc24lc32: %d bytes at %#x cross a page boundary", len(data), offset)
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf[:2], offset)
	copy(buf[2:], data)
	if err := d.transport.WriteToAddr(ctx, d.addr, buf); err != nil {
		return fmt.Errorf("mc24lc32: page write at %#x failed: %w", offset, err)
	}
	return nil
}

// WriteByte writes a single byte at offset.
func (d *Device) WriteByte(ctx context.Context, offset uint16, value byte) error {
	return d.WritePage(ctx, offset, []byte{value})
}

// WriteAt writes an arbitrary span, splitting it into page-aligned bursts
// and waiting out the internal write cycle after each one.
func (d *Device) WriteAt(ctx context.Context, offset uint16, data []byte) error {
	if int(offset)+len(data) > d.Capacity() {
		return fmt.Errorf("mc24lc32: write range %#x+%d exceeds device capacity", offset, len(data))
	}
	for len(data) > 0 {
		chunk := data
		if space := pageSize - int(offset)%pageSize; len(chunk) > space {
			chunk = chunk[:space]
		}
		if err := d.WritePage(ctx, offset, chunk); err != nil {
			return err
		}
		if err := d.waitReady(ctx); err != nil {
			return err
		}
		offset += uint16(len(chunk))
		data = data[len(chunk):]
	}
	return nil
}

// Read performs a random read: a write transaction positions the word
// address, the following read clocks len(buffer) bytes out.
func (d *Device) Read(ctx context.Context, offset uint16, buffer []byte) error {
	if int(offset) >= d.Capacity() {
		return fmt.Errorf("mc24lc32: offset %#x out of range", offset)
	}
	var addr [2]byte
	binary.BigEndian.PutUint16(addr[:], offset)
	if err := d.transport.WriteToAddr(ctx, d.addr, addr[:]); err != nil {
		return fmt.Errorf("mc24lc32: setting word address %#x failed: %w", offset, err)
	}
	if err := d.transport.ReadFromAddr(ctx, d.addr, buffer); err != nil {
		return fmt.Errorf("mc24lc32: read at %#x failed: %w", offset, err)
	}
	return nil
}

// Current clocks data out at the internal address counter without setting
// the word address first (datasheet current-address read).
func (d *Device) Current(ctx context.Context, buffer []byte) error {
	if err := d.transport.ReadFromAddr(ctx, d.addr, buffer); err != nil {
		return fmt.Errorf("mc24lc32: current address read failed: %w", err)
	}
	return nil
}

// Ready polls the slave with an empty write. The device does not
// acknowledge its address while an internal write cycle is in progress.
func (d *Device) Ready(ctx context.Context) error {
	return eeprog.Probe(ctx, d.transport, d.addr)
}

// waitReady acknowledge-polls until the write cycle completes.
func (d *Device) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(4 * writeCycle)
	for {
		if err := d.Ready(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("mc24lc32: timeout waiting for write cycle")
		}
		timer := time.NewTimer(500 * time.Microsecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
