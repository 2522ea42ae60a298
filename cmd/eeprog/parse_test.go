package main

import (
	"testing"

	"github.com/mklimuk/eeprog/image"

	"github.com/stretchr/testify/assert"
)

func TestParseSlaveAddress(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		expected      byte
		expectedError string
	}{
		{name: "hex with prefix", raw: "0x50", expected: 0x50},
		{name: "decimal", raw: "80", expected: 80},
		{name: "bare hex fallback", raw: "5a", expected: 0x5A},
		{name: "uppercase prefix", raw: "0X74", expected: 0x74},
		{name: "surrounding whitespace", raw: " 0x50 ", expected: 0x50},
		{name: "out of 7-bit range", raw: "0xb4", expectedError: "i2c address 0xb4 out of 7-bit range"},
		{name: "garbage", raw: "zz", expectedError: `invalid i2c address "zz"`},
		{name: "empty", raw: "", expectedError: `invalid i2c address ""`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := parseSlaveAddress(tc.raw)
			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, addr)
		})
	}
}

func TestParseWordAddress(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		expected      uint16
		expectedError string
	}{
		{name: "prefixed", raw: "0x001E", expected: 0x001E},
		{name: "bare", raw: "0000", expected: 0x0000},
		{name: "last byte", raw: "0fff", expected: 0x0FFF},
		{name: "out of range", raw: "0x1000", expectedError: "address 0x1000 out of range (device capacity 4096 bytes)"},
		{name: "garbage", raw: "xyz", expectedError: `malformed address "xyz"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			offset, err := parseWordAddress(tc.raw, 4096)
			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, offset)
		})
	}
}

func TestParseHexBytes(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		expected      []byte
		expectedError string
	}{
		{name: "spaced", raw: "00 01 02", expected: []byte{0x00, 0x01, 0x02}},
		{name: "packed", raw: "deadbeef", expected: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{name: "prefixed", raw: "0x0a0b", expected: []byte{0x0A, 0x0B}},
		{name: "mixed case", raw: "0A 0B", expected: []byte{0x0A, 0x0B}},
		{name: "blank", raw: "   ", expectedError: `malformed hex data ""`},
		{name: "nibbles", raw: "0 1 2", expectedError: `malformed hex data "0 1 2"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := parseHexBytes(tc.raw)
			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, data)
		})
	}
}

func TestParseByteToken(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		expected      byte
		expectedError string
	}{
		{name: "prefixed", raw: "0x42", expected: 0x42},
		{name: "bare", raw: "ff", expected: 0xFF},
		{name: "too wide", raw: "100", expectedError: `malformed hex byte "100"`},
		{name: "garbage", raw: "gg", expectedError: `malformed hex byte "gg"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, err := parseByteToken(tc.raw)
			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, value)
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		expected      image.Format
		expectedError string
	}{
		{name: "empty defaults to auto", raw: "", expected: image.FormatAuto},
		{name: "auto", raw: "auto", expected: image.FormatAuto},
		{name: "zl uppercase", raw: "ZL", expected: image.FormatZL},
		{name: "pairs", raw: "pairs", expected: image.FormatPairs},
		{name: "ihex", raw: "ihex", expected: image.FormatIntelHex},
		{name: "hex alias", raw: "hex", expected: image.FormatIntelHex},
		{name: "unknown", raw: "elf", expectedError: `unknown image format "elf", expected auto, zl, pairs or ihex`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			format, err := parseFormat(tc.raw)
			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, format)
		})
	}
}

func TestHexSpaced(t *testing.T) {
	assert.Equal(t, "00 a1 ff", hexSpaced([]byte{0x00, 0xA1, 0xFF}))
	assert.Equal(t, "", hexSpaced(nil))
}
