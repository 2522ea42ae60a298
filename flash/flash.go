// Package flash sequences parsed image records into page write
// transactions against an EEPROM-like target, pacing writes with the
// device write-cycle delay and optionally reading everything back.
package flash

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/eeprog/image"
)

// Target is an EEPROM-like device accepting page writes and random reads.
// WritePage must issue a single bus transaction; offsets handed to it by
// the sequencer never cross a page boundary.
type Target interface {
	WritePage(ctx context.Context, offset uint16, data []byte) error
	Read(ctx context.Context, offset uint16, buffer []byte) error
	PageSize() int
	Capacity() int
}

type Opts struct {
	Delay    time.Duration
	Verify   bool
	Progress func(written, total int)
}

type Opt func(*Opts)

// WithDelay sets the pause after each page write (EEPROM write-cycle time).
func WithDelay(delay time.Duration) Opt {
	return func(o *Opts) {
		o.Delay = delay
	}
}

// WithVerify enables a full read-back comparison after the last write.
func WithVerify(verify bool) Opt {
	return func(o *Opts) {
		o.Verify = verify
	}
}

// WithProgress registers a callback invoked after each page write with the
// number of bytes written so far and the total byte count.
func WithProgress(progress func(written, total int)) Opt {
	return func(o *Opts) {
		o.Progress = progress
	}
}

// Mismatch is a single read-back disagreement. Mismatches do not abort a
// run; they are collected and reported in the summary.
type Mismatch struct {
	Offset   uint16
	Expected byte
	Actual   byte
}

func (m Mismatch) String() string {
	return fmt.Sprintf("offset %#x: wrote %#x, read %#x", m.Offset, m.Expected, m.Actual)
}

// Summary reports what a run actually did. When Run returns an error the
// summary still reflects the transactions issued before the failure.
type Summary struct {
	Written    int
	Pages      int
	Mismatches []Mismatch
	Elapsed    time.Duration
}

// Ok reports whether the run completed with no read-back mismatch.
func (s *Summary) Ok() bool {
	return len(s.Mismatches) == 0
}

type Sequencer struct {
	target Target
	config Opts
}

func NewSequencer(target Target, opts ...Opt) *Sequencer {
	var config Opts
	for _, opt := range opts {
		opt(&config)
	}
	return &Sequencer{target: target, config: config}
}

// Run writes all records in file order. Contiguous records within one page
// are grouped into a single write transaction; any transport error aborts
// the remaining sequence. Verification mismatches are not errors.
func (s *Sequencer) Run(ctx context.Context, records []image.WriteRecord) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}
	if err := s.check(records); err != nil {
		summary.Elapsed = time.Since(started)
		return summary, err
	}
	spans := group(records, s.target.PageSize())
	total := len(records)
	for _, sp := range spans {
		if err := s.target.WritePage(ctx, sp.offset, sp.data); err != nil {
			summary.Elapsed = time.Since(started)
			return summary, fmt.Errorf("page write at %#x failed: %w", sp.offset, err)
		}
		summary.Pages++
		summary.Written += len(sp.data)
		if s.config.Progress != nil {
			s.config.Progress(summary.Written, total)
		}
		if s.config.Delay > 0 {
			if err := wait(ctx, s.config.Delay); err != nil {
				summary.Elapsed = time.Since(started)
				return summary, err
			}
		}
	}
	if s.config.Verify {
		if err := s.verify(ctx, spans, summary); err != nil {
			summary.Elapsed = time.Since(started)
			return summary, err
		}
	}
	summary.Elapsed = time.Since(started)
	return summary, nil
}

// Verify reads the target back and compares it against the records without
// writing anything. The summary carries one Mismatch per disagreeing byte.
func (s *Sequencer) Verify(ctx context.Context, records []image.WriteRecord) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}
	if err := s.check(records); err != nil {
		summary.Elapsed = time.Since(started)
		return summary, err
	}
	spans := group(records, s.target.PageSize())
	if err := s.verify(ctx, spans, summary); err != nil {
		summary.Elapsed = time.Since(started)
		return summary, err
	}
	summary.Elapsed = time.Since(started)
	return summary, nil
}

func (s *Sequencer) check(records []image.WriteRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("image carries no records")
	}
	capacity := s.target.Capacity()
	for _, rec := range records {
		if int(rec.Offset) >= capacity {
			return fmt.Errorf("record offset %#x out of range (device capacity %d bytes)", rec.Offset, capacity)
		}
	}
	return nil
}

// span is a page-aligned contiguous byte run, written in one transaction.
type span struct {
	offset uint16
	data   []byte
}

// group folds records into spans. A record joins the current span only
// when it continues the previous offset, stays within the same page and
// the span is still shorter than a page. Everything else, including a
// duplicate offset, starts a new transaction so write order is preserved.
func group(records []image.WriteRecord, pageSize int) []span {
	if pageSize <= 0 {
		pageSize = 1
	}
	var spans []span
	var prev uint16
	for _, rec := range records {
		last := len(spans) - 1
		startNew := last < 0 ||
			rec.Offset != prev+1 ||
			int(rec.Offset)%pageSize == 0 ||
			len(spans[last].data) >= pageSize
		if startNew {
			spans = append(spans, span{offset: rec.Offset})
			last = len(spans) - 1
		}
		spans[last].data = append(spans[last].data, rec.Value)
		prev = rec.Offset
	}
	return spans
}

func (s *Sequencer) verify(ctx context.Context, spans []span, summary *Summary) error {
	for _, sp := range spans {
		buf := make([]byte, len(sp.data))
		if err := s.target.Read(ctx, sp.offset, buf); err != nil {
			return fmt.Errorf("read back at %#x failed: %w", sp.offset, err)
		}
		for i := range sp.data {
			if buf[i] != sp.data[i] {
				summary.Mismatches = append(summary.Mismatches, Mismatch{
					Offset:   sp.offset + uint16(i),
					Expected: sp.data[i],
					Actual:   buf[i],
				})
			}
		}
	}
	return nil
}

// ReadSpan fills buffer from the target starting at offset, splitting the
// transfer into page-size reads so frame-limited adapters can serve it.
func ReadSpan(ctx context.Context, target Target, offset uint16, buffer []byte) error {
	if int(offset)+len(buffer) > target.Capacity() {
		return fmt.Errorf("read range %#x+%d exceeds device capacity %d bytes", offset, len(buffer), target.Capacity())
	}
	chunk := target.PageSize()
	if chunk <= 0 {
		chunk = len(buffer)
	}
	for start := 0; start < len(buffer); start += chunk {
		end := min(start+chunk, len(buffer))
		if err := target.Read(ctx, offset+uint16(start), buffer[start:end]); err != nil {
			return fmt.Errorf("read at %#x failed: %w", offset+uint16(start), err)
		}
	}
	return nil
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
