package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mklimuk/eeprog/cmd/eeprog/console"
	"github.com/mklimuk/eeprog/flash"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
)

// manualCommand is one entry of the interactive menu. run receives the
// running address counter and returns where the counter lands afterwards.
type manualCommand struct {
	name string
	run  func(ctx context.Context, cur uint16) (uint16, error)
}

// manualMode loops over a per-device command menu, prompting for addresses
// and data, until the user quits.
func manualMode(c *cli.Context, ses *session) error {
	ctx := c.Context
	if err := ses.unlock(ctx); err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	commands := manualCommands(ses)
	names := make([]string, len(commands))
	for i, cmd := range commands {
		names[i] = cmd.name
	}
	cur := uint16(0)
	for {
		title := fmt.Sprintf("Pick a command to run on the eeprom, current address is %s",
			console.Cyan(fmt.Sprintf("%#06x", cur)))
		idx, quit, err := pickOption(title, names)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if quit {
			console.Print("Program quit")
			return nil
		}
		next, err := commands[idx].run(ctx, cur)
		if err != nil {
			return console.Exit(1, "%s failed: %s", commands[idx].name, console.Red(err))
		}
		cur = next
	}
}

func manualCommands(ses *session) []manualCommand {
	capacity := ses.target.Capacity()
	commands := []manualCommand{
		{
			name: "Page Write",
			run: func(ctx context.Context, cur uint16) (uint16, error) {
				offset, err := promptWordAddress(capacity)
				if err != nil {
					return cur, err
				}
				data, err := promptHexBytes()
				if err != nil {
					return cur, err
				}
				if err = ses.target.WriteAt(ctx, offset, data); err != nil {
					return cur, err
				}
				printData(data)
				return offset + uint16(len(data)), nil
			},
		},
	}
	if ses.mc != nil {
		commands = append(commands, manualCommand{
			name: "Single Write",
			run: func(ctx context.Context, cur uint16) (uint16, error) {
				offset, err := promptWordAddress(capacity)
				if err != nil {
					return cur, err
				}
				value, err := promptByte()
				if err != nil {
					return cur, err
				}
				if err = ses.mc.WriteByte(ctx, offset, value); err != nil {
					return cur, err
				}
				printData([]byte{value})
				return offset + 1, nil
			},
		})
	}
	commands = append(commands, manualCommand{
		name: "Read",
		run: func(ctx context.Context, cur uint16) (uint16, error) {
			offset, err := promptWordAddress(capacity)
			if err != nil {
				return cur, err
			}
			count, err := promptCount()
			if err != nil {
				return cur, err
			}
			buffer := make([]byte, count)
			if err = flash.ReadSpan(ctx, ses.target, offset, buffer); err != nil {
				return cur, err
			}
			printData(buffer)
			return offset + uint16(count), nil
		},
	})
	if ses.mc != nil {
		commands = append(commands, manualCommand{
			name: "Current Address Read",
			run: func(ctx context.Context, cur uint16) (uint16, error) {
				count, err := promptCount()
				if err != nil {
					return cur, err
				}
				buffer := make([]byte, count)
				if err = ses.mc.Current(ctx, buffer); err != nil {
					return cur, err
				}
				printData(buffer)
				return cur + uint16(count), nil
			},
		})
	}
	return commands
}

// pickOption renders a numbered menu until the user picks a valid entry.
// Non-numeric input (and a closed terminal) quits.
func pickOption(title string, options []string) (int, bool, error) {
	for {
		console.Print(console.Bold(title))
		for i, opt := range options {
			console.Printf("\t%d:  %s\n", i+1, opt)
		}
		console.Print("\tq:  Quit Program")
		answer, err := console.Prompt("Choose option from list above: ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return 0, true, nil
			}
			return 0, false, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			return 0, true, nil
		}
		if n < 1 || n > len(options) {
			console.Errorf("invalid choice %d", n)
			continue
		}
		return n - 1, false, nil
	}
}

func pickMode() (string, bool, error) {
	modes := []string{"file", "manual"}
	idx, quit, err := pickOption("Which mode do you want to use?", modes)
	if err != nil || quit {
		return "", quit, err
	}
	return modes[idx], false, nil
}

func promptWordAddress(capacity int) (uint16, error) {
	raw, err := console.Prompt("Input address byte as 0x0000 or 0000: ")
	if err != nil {
		return 0, err
	}
	return parseWordAddress(raw, capacity)
}

func promptHexBytes() ([]byte, error) {
	raw, err := console.Prompt("Input data bytes as hex with spaces ex:(00 01 02): ")
	if err != nil {
		return nil, err
	}
	return parseHexBytes(raw)
}

func promptByte() (byte, error) {
	raw, err := console.Prompt("Input data as a single byte 0x00 or 00: ")
	if err != nil {
		return 0, err
	}
	return parseByteToken(raw)
}

func promptCount() (int, error) {
	raw, err := console.Prompt("Input number of bytes to read (int): ")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("invalid byte count %q", strings.TrimSpace(raw))
	}
	return count, nil
}

func printData(data []byte) {
	console.Printf("Data in if write, Data out if read:\n%s\n", hexSpaced(data))
}

func hexSpaced(data []byte) string {
	parts := make([]string, len(data))
	for i, value := range data {
		parts[i] = fmt.Sprintf("%02x", value)
	}
	return strings.Join(parts, " ")
}
