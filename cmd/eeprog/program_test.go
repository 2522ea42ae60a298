package main

import (
	"bytes"
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mklimuk/eeprog"
	"github.com/mklimuk/eeprog/cmd/eeprog/console"

	chlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

// memDevice is an in-memory EEPROM standing in for a driver, recording bus
// activity.
type memDevice struct {
	data   []byte
	writes int
	reads  int
}

func (d *memDevice) WritePage(_ context.Context, offset uint16, data []byte) error {
	d.writes++
	copy(d.data[offset:], data)
	return nil
}

func (d *memDevice) WriteAt(ctx context.Context, offset uint16, data []byte) error {
	return d.WritePage(ctx, offset, data)
}

func (d *memDevice) Read(_ context.Context, offset uint16, buffer []byte) error {
	d.reads++
	copy(buffer, d.data[offset:])
	return nil
}

func (d *memDevice) PageSize() int { return 32 }
func (d *memDevice) Capacity() int { return len(d.data) }
func (d *memDevice) Address() byte { return 0x50 }

func fileModeContext(imagePath string, debug bool) *cli.Context {
	set := flag.NewFlagSet("eeprog", flag.ContinueOnError)
	set.String("zlimage", imagePath, "")
	set.String("format", "auto", "")
	set.Bool("no-verify", false, "")
	set.Bool("debug", debug, "")
	return cli.NewContext(cli.NewApp(), set, nil)
}

func fileModeSession(t *testing.T) (*session, *memDevice) {
	profile, err := eeprog.LookupProfile("24LC32")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dev := &memDevice{data: make([]byte, profile.Capacity())}
	return &session{profile: profile, target: dev}, dev
}

func writeImageFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "image.txt")
	if err := os.WriteFile(path, []byte("; header\nAA\nBB\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestFileMode_DebugDumps(t *testing.T) {
	var logs bytes.Buffer
	slog.SetDefault(slog.New(chlog.NewWithOptions(&logs, chlog.Options{Level: chlog.DebugLevel})))
	var out, errs bytes.Buffer
	console.SetOutput(&out, &errs)
	defer console.SetOutput(os.Stdout, os.Stderr)

	ses, dev := fileModeSession(t)
	err := fileMode(fileModeContext(writeImageFile(t), true), ses)
	assert.NoError(t, err)
	assert.Equal(t, 1, dev.writes)
	// one verify read plus the read-back for the dump
	assert.Equal(t, 2, dev.reads)
	assert.Contains(t, logs.String(), "image data")
	assert.Contains(t, logs.String(), "eeprom content after flash")
	assert.Contains(t, logs.String(), "aa bb")
	assert.Contains(t, out.String(), "successful eeprom flash")
}

func TestFileMode_NoDebugSkipsDumps(t *testing.T) {
	var logs bytes.Buffer
	slog.SetDefault(slog.New(chlog.NewWithOptions(&logs, chlog.Options{Level: chlog.InfoLevel})))
	var out, errs bytes.Buffer
	console.SetOutput(&out, &errs)
	defer console.SetOutput(os.Stdout, os.Stderr)

	ses, dev := fileModeSession(t)
	err := fileMode(fileModeContext(writeImageFile(t), false), ses)
	assert.NoError(t, err)
	assert.Equal(t, 1, dev.reads)
	assert.NotContains(t, logs.String(), "image data")
	assert.NotContains(t, logs.String(), "eeprom content after flash")
	assert.Contains(t, out.String(), "successful eeprom flash")
}
