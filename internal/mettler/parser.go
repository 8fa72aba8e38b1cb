package mettler

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
)

// Frame markers used by the scale's continuous output protocol.
const (
	stx byte = 0x02
	etx byte = 0x03
)

// Body layout: WT,<weight>,<unit>,<status>,<target>,<product>,<timestamp>
const (
	recordType     = "WT"
	fieldCount     = 7
	fieldSeparator = ","

	// TimestampLayout is the date-time form the scale stamps on each frame.
	TimestampLayout = "2006-01-02T15:04:05"
)

// Result is one outcome of a Feed call: either a validated record or a
// per-frame parse error. Errors never stop the stream; the parser has
// already resumed scanning past the offending frame.
type Result struct {
	Record domain.WeightRecord
	Err    error
}

// parser reassembly states.
type state int

const (
	stateWaitingStart state = iota
	stateReadingBody
	stateReadingChecksum
)

// Parser reassembles the scale's framed byte stream into validated
// weight records. It retains an internal buffer between Feed calls, so a
// frame split across arbitrarily many chunks is reassembled transparently.
//
// Parser is not safe for concurrent use; feed it from a single goroutine.
type Parser struct {
	checksum Checksum
	buf      []byte
	state    state
	// scan is the offset of the first byte not yet examined by the
	// current state's marker search, so repeated Feed calls never rescan
	// bytes already covered.
	scan int
	// bodyEnd is the offset of the ETX once found (stateReadingChecksum).
	bodyEnd int
}

// NewParser creates a parser using the given checksum strategy.
// A nil strategy defaults to SumMod256.
func NewParser(checksum Checksum) *Parser {
	if checksum == nil {
		checksum = SumMod256{}
	}
	return &Parser{checksum: checksum}
}

// Feed appends chunk to the reassembly buffer and returns the results
// for every frame completed by it, in arrival order. An incomplete
// trailing frame is retained for the next call. Feed never fails as a
// whole; individual bad frames surface as Result.Err entries.
func (p *Parser) Feed(chunk []byte) []Result {
	p.buf = append(p.buf, chunk...)

	var out []Result
	for {
		switch p.state {
		case stateWaitingStart:
			i := bytes.IndexByte(p.buf[p.scan:], stx)
			if i < 0 {
				// Nothing before a start marker is ever a frame.
				p.buf = p.buf[:0]
				p.scan = 0
				return out
			}
			p.restartAfter(p.scan + i)

		case stateReadingBody:
			seg := p.buf[p.scan:]
			e := bytes.IndexByte(seg, etx)
			s := bytes.IndexByte(seg, stx)
			if s >= 0 && (e < 0 || s < e) {
				// A new start marker before the end marker: the previous
				// frame was cut short on the wire.
				out = append(out, Result{Err: fmt.Errorf("%w: start marker inside body", domain.ErrMalformedFrame)})
				p.restartAfter(p.scan + s)
				continue
			}
			if e < 0 {
				p.scan = len(p.buf)
				return out
			}
			p.bodyEnd = p.scan + e
			p.state = stateReadingChecksum

		case stateReadingChecksum:
			rest := p.buf[p.bodyEnd+1:]
			if len(rest) < 2 {
				return out
			}
			trailer := rest[:2]
			if !isHexPair(trailer) {
				// A truncated trailer may hold the next frame's start
				// marker, so resume scanning right after the end marker
				// instead of consuming the two trailer positions.
				out = append(out, Result{Err: fmt.Errorf("%w: trailer %q is not two hex digits", domain.ErrMalformedFrame, trailer)})
				p.buf = p.buf[p.bodyEnd+1:]
				p.scan = 0
				p.state = stateWaitingStart
				continue
			}
			out = append(out, p.complete(p.buf[:p.bodyEnd], trailer))

			// Consume the frame plus any line terminator bytes already
			// buffered; a terminator split across chunks is swallowed by
			// the next start-marker search.
			consumed := p.bodyEnd + 3
			for consumed < len(p.buf) && (p.buf[consumed] == '\r' || p.buf[consumed] == '\n') {
				consumed++
			}
			p.buf = p.buf[consumed:]
			p.scan = 0
			p.state = stateWaitingStart
		}
	}
}

// restartAfter discards everything up to and including the start marker
// at offset i and resumes reading a fresh body.
func (p *Parser) restartAfter(i int) {
	p.buf = p.buf[i+1:]
	p.scan = 0
	p.state = stateReadingBody
}

// complete verifies the trailer and parses the body of a fully
// delimited frame. The trailer is already known to be a hex pair.
func (p *Parser) complete(body, trailer []byte) Result {
	if !p.checksum.Verify(body, trailer) {
		return Result{Err: fmt.Errorf("%w: body %q trailer %q", domain.ErrChecksumMismatch, body, trailer)}
	}
	rec, err := parseBody(body)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Record: rec}
}

// parseBody maps the comma-separated frame body into a WeightRecord.
func parseBody(body []byte) (domain.WeightRecord, error) {
	var rec domain.WeightRecord

	fields := strings.Split(string(body), fieldSeparator)
	if len(fields) != fieldCount {
		return rec, fmt.Errorf("%w: got %d fields, want %d", domain.ErrFieldCountMismatch, len(fields), fieldCount)
	}
	if fields[0] != recordType {
		return rec, fmt.Errorf("%w: %q", domain.ErrUnknownRecordType, fields[0])
	}

	weight, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsInf(weight, 0) || math.IsNaN(weight) {
		return rec, fmt.Errorf("%w: weight %q", domain.ErrNumericParse, fields[1])
	}

	status, err := parseStatus(fields[3])
	if err != nil {
		return rec, err
	}

	ts, err := time.Parse(TimestampLayout, fields[6])
	if err != nil {
		return rec, fmt.Errorf("%w: timestamp %q", domain.ErrMalformedFrame, fields[6])
	}

	rec = domain.WeightRecord{
		Weight:    weight,
		Unit:      fields[2],
		Status:    status,
		Target:    fields[4],
		Product:   fields[5],
		Timestamp: ts,
	}
	return rec, nil
}

// parseStatus maps the single-character status code to the status enum.
func parseStatus(code string) (domain.Status, error) {
	switch code {
	case "S":
		return domain.StatusStable, nil
	case "U":
		return domain.StatusUnstable, nil
	case "O":
		return domain.StatusOver, nil
	case "T":
		return domain.StatusUnder, nil
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownStatusCode, code)
	}
}

func isHexPair(b []byte) bool {
	if len(b) != 2 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
