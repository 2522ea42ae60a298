package image

import (
	"bytes"

	"github.com/marcinbor85/gohex"
)

// parseIntelHex decodes an Intel HEX image. Segments come back from the
// decoder in ascending address order, so record order is deterministic.
func parseIntelHex(name string, data []byte, options Opts) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(data)); err != nil {
		return nil, &ParseError{Name: name, Reason: err.Error()}
	}
	var records []WriteRecord
	for _, segment := range mem.GetDataSegments() {
		for i, value := range segment.Data {
			offset := int(segment.Address) + i
			if offset >= options.Limit {
				return nil, &ParseError{Name: name, Reason: outOfRange(offset, options.Limit)}
			}
			records = append(records, WriteRecord{Offset: uint16(offset), Value: value})
		}
	}
	if len(records) == 0 {
		return nil, &ParseError{Name: name, Reason: "no data records"}
	}
	return &Image{Name: name, Format: FormatIntelHex, Records: records}, nil
}
