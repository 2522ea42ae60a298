// Package image parses EEPROM image files into ordered write records.
//
// Three file layouts are understood: the ZL30267 vendor dump (one hex byte
// per line, header lines marked with ';'), plain offset/value pairs and
// Intel HEX. Parsing is line oriented and single pass; offsets are checked
// against the device capacity at parse time so a bad image never reaches
// the bus.
package image

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteRecord is a single byte to be written at an EEPROM offset.
// Records are immutable once parsed; their order is the file order.
type WriteRecord struct {
	Offset uint16
	Value  byte
}

type Format int

const (
	FormatAuto Format = iota
	FormatZL
	FormatPairs
	FormatIntelHex
)

func (f Format) String() string {
	switch f {
	case FormatZL:
		return "zl"
	case FormatPairs:
		return "pairs"
	case FormatIntelHex:
		return "ihex"
	default:
		return "auto"
	}
}

// ParseError reports a malformed image file, naming the offending line
// when it is known.
type ParseError struct {
	Name   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	switch {
	case e.Name != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Name, e.Line, e.Reason)
	case e.Name != "":
		return fmt.Sprintf("%s: %s", e.Name, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	default:
		return e.Reason
	}
}

type Opts struct {
	Format Format
	Limit  int
	Base   uint16
}

type Opt func(*Opts)

// WithFormat forces a file layout instead of auto detection.
func WithFormat(format Format) Opt {
	return func(o *Opts) {
		o.Format = format
	}
}

// WithLimit sets the device capacity in bytes; any record offset at or
// beyond the limit is a parse error.
func WithLimit(limit int) Opt {
	return func(o *Opts) {
		o.Limit = limit
	}
}

// WithBase sets the offset assigned to the first byte of a raw byte-stream
// image (ZL layout). Pair and Intel HEX layouts carry their own offsets.
func WithBase(offset uint16) Opt {
	return func(o *Opts) {
		o.Base = offset
	}
}

func defaultOpts() Opts {
	return Opts{
		Format: FormatAuto,
		Limit:  1 << 16,
	}
}

// Image is the parsed content of an image file.
type Image struct {
	Name    string
	Format  Format
	Records []WriteRecord
}

func (img *Image) Len() int {
	return len(img.Records)
}

// Bytes returns the record values in write order.
func (img *Image) Bytes() []byte {
	out := make([]byte, len(img.Records))
	for i, rec := range img.Records {
		out[i] = rec.Value
	}
	return out
}

// ParseFile reads and parses an image file. The ZL vendor layout is only
// accepted from .txt files, matching the vendor export convention.
func ParseFile(path string, opts ...Opt) (*Image, error) {
	options := defaultOpts()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Format == FormatZL && !strings.EqualFold(filepath.Ext(path), ".txt") {
		return nil, &ParseError{Name: path, Reason: "invalid file extension, expected .txt"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Name: path, Reason: err.Error()}
	}
	return parse(path, data, options)
}

// Parse parses image content from memory; name is only used in error
// messages.
func Parse(name string, data []byte, opts ...Opt) (*Image, error) {
	options := defaultOpts()
	for _, opt := range opts {
		opt(&options)
	}
	return parse(name, data, options)
}

func parse(name string, data []byte, options Opts) (*Image, error) {
	format := options.Format
	if format == FormatAuto {
		format = detect(name, data)
	}
	switch format {
	case FormatZL:
		return parseZL(name, data, options)
	case FormatPairs:
		return parsePairs(name, data, options)
	case FormatIntelHex:
		return parseIntelHex(name, data, options)
	default:
		return nil, &ParseError{Name: name, Reason: fmt.Sprintf("unsupported image format %d", format)}
	}
}

// detect picks a layout from the file extension and the first line carrying
// data. Lines containing ';' and lines starting with '#' are headers in
// every supported layout and do not participate in the decision.
func detect(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hex", ".ihx", ".ihex":
		return FormatIntelHex
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.Contains(text, ";") || strings.HasPrefix(text, "#") {
			continue
		}
		if strings.HasPrefix(text, ":") {
			return FormatIntelHex
		}
		if len(strings.Fields(text)) >= 2 {
			return FormatPairs
		}
		return FormatZL
	}
	return FormatZL
}

// parseZL reads the ZL30267 vendor dump layout: one hex byte per line,
// consecutive offsets starting at the base offset. Any line containing ';'
// is a header and is skipped whole.
func parseZL(name string, data []byte, options Opts) (*Image, error) {
	records := make([]WriteRecord, 0, 256)
	offset := int(options.Base)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.Contains(text, ";") {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		value, err := parseByte(text)
		if err != nil {
			return nil, &ParseError{Name: name, Line: line, Reason: err.Error()}
		}
		if offset >= options.Limit {
			return nil, &ParseError{Name: name, Line: line, Reason: outOfRange(offset, options.Limit)}
		}
		records = append(records, WriteRecord{Offset: uint16(offset), Value: value})
		offset++
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Name: name, Line: line, Reason: err.Error()}
	}
	if len(records) == 0 {
		return nil, &ParseError{Name: name, Reason: "no data records"}
	}
	return &Image{Name: name, Format: FormatZL, Records: records}, nil
}

// parsePairs reads "offset value" lines, both tokens hex with an optional
// 0x prefix. A ';' starts a comment running to the end of the line; lines
// whose first non-space byte is '#' are comments too.
func parsePairs(name string, data []byte, options Opts) (*Image, error) {
	records := make([]WriteRecord, 0, 256)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if idx := strings.IndexByte(text, ';'); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, &ParseError{Name: name, Line: line, Reason: fmt.Sprintf("expected offset and value, got %d fields", len(fields))}
		}
		offset, err := parseOffset(fields[0])
		if err != nil {
			return nil, &ParseError{Name: name, Line: line, Reason: err.Error()}
		}
		value, err := parseByte(fields[1])
		if err != nil {
			return nil, &ParseError{Name: name, Line: line, Reason: err.Error()}
		}
		if int(offset) >= options.Limit {
			return nil, &ParseError{Name: name, Line: line, Reason: outOfRange(int(offset), options.Limit)}
		}
		records = append(records, WriteRecord{Offset: offset, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Name: name, Line: line, Reason: err.Error()}
	}
	if len(records) == 0 {
		return nil, &ParseError{Name: name, Reason: "no data records"}
	}
	return &Image{Name: name, Format: FormatPairs, Records: records}, nil
}

func parseByte(token string) (byte, error) {
	v, err := strconv.ParseUint(normalizeHex(token), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("malformed hex byte %q", token)
	}
	return byte(v), nil
}

func parseOffset(token string) (uint16, error) {
	v, err := strconv.ParseUint(normalizeHex(token), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("malformed hex offset %q", token)
	}
	return uint16(v), nil
}

func normalizeHex(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	return strings.TrimPrefix(token, "0x")
}

func outOfRange(offset, limit int) string {
	return fmt.Sprintf("offset %#x out of range (device capacity %d bytes)", offset, limit)
}
