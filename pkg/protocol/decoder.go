package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decoding errors.
var (
	ErrResultNotFirst = errors.New("protocol: result row is not first")
	ErrRowAfterError  = errors.New("protocol: row after error row")
)

// Payload is a fully decoded stream.
type Payload struct {
	// HTML is the concatenation of all markup rows.
	HTML string

	// Result is the raw action result, valid when HasResult is set.
	Result    json.RawMessage
	HasResult bool

	// Error is the message of the error row, if the render failed.
	Error string

	// Rows is the number of rows read.
	Rows int
}

// DecodeResult unmarshals the action result into v.
func (p *Payload) DecodeResult(v any) error {
	if !p.HasResult {
		return errors.New("protocol: stream has no result row")
	}
	return json.Unmarshal(p.Result, v)
}

// Decode reads a whole stream from r and checks row ordering.
func Decode(r io.Reader) (*Payload, error) {
	rr := NewRowReader(r)
	p := &Payload{}
	var html strings.Builder
	failed := false

	for {
		row, err := rr.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p, err
		}
		if failed {
			return p, ErrRowAfterError
		}
		p.Rows++

		switch row.Tag {
		case TagResult:
			if p.Rows != 1 {
				return p, ErrResultNotFirst
			}
			p.Result = append(json.RawMessage(nil), row.Payload...)
			p.HasResult = true
		case TagHTML:
			var s string
			if err := json.Unmarshal(row.Payload, &s); err != nil {
				return p, fmt.Errorf("%w: html row: %v", ErrMalformedRow, err)
			}
			html.WriteString(s)
		case TagError:
			var ep ErrorPayload
			if err := json.Unmarshal(row.Payload, &ep); err != nil {
				return p, fmt.Errorf("%w: error row: %v", ErrMalformedRow, err)
			}
			p.Error = ep.Message
			failed = true
		}
	}

	p.HTML = html.String()
	return p, nil
}
