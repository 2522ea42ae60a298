package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mklimuk/eeprog/image"
)

// parseSlaveAddress reads a 7-bit slave address: decimal by default, hex
// with a 0x prefix or when decimal parsing fails ("5a").
func parseSlaveAddress(raw string) (byte, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	var value uint64
	var err error
	if rest, ok := strings.CutPrefix(token, "0x"); ok {
		value, err = strconv.ParseUint(rest, 16, 8)
	} else {
		value, err = strconv.ParseUint(token, 10, 8)
		if err != nil {
			value, err = strconv.ParseUint(token, 16, 8)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("invalid i2c address %q", raw)
	}
	if value > 0x7F {
		return 0, fmt.Errorf("i2c address %#x out of 7-bit range", value)
	}
	return byte(value), nil
}

// parseWordAddress reads a device offset as hex with an optional 0x prefix
// and bounds it against the device capacity.
func parseWordAddress(raw string, capacity int) (uint16, error) {
	token := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "0x")
	value, err := strconv.ParseUint(token, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("malformed address %q", strings.TrimSpace(raw))
	}
	if int(value) >= capacity {
		return 0, fmt.Errorf("address %#x out of range (device capacity %d bytes)", value, capacity)
	}
	return uint16(value), nil
}

// parseHexBytes reads a hex byte string, with or without spaces between
// bytes ("00 01 02" or "000102").
func parseHexBytes(raw string) ([]byte, error) {
	token := strings.Join(strings.Fields(strings.ToLower(raw)), "")
	token = strings.TrimPrefix(token, "0x")
	data, err := hex.DecodeString(token)
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("malformed hex data %q", strings.TrimSpace(raw))
	}
	return data, nil
}

func parseByteToken(raw string) (byte, error) {
	token := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "0x")
	value, err := strconv.ParseUint(token, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("malformed hex byte %q", strings.TrimSpace(raw))
	}
	return byte(value), nil
}

func parseFormat(raw string) (image.Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return image.FormatAuto, nil
	case "zl":
		return image.FormatZL, nil
	case "pairs":
		return image.FormatPairs, nil
	case "ihex", "hex":
		return image.FormatIntelHex, nil
	default:
		return image.FormatAuto, fmt.Errorf("unknown image format %q, expected auto, zl, pairs or ihex", raw)
	}
}
