package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encoder produces the rows of one stream, numbering them in order.
// It is not safe for concurrent use.
type Encoder struct {
	next uint64
}

// NewEncoder creates an encoder whose first row has ID 0.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Rows returns the number of rows produced so far.
func (e *Encoder) Rows() uint64 {
	return e.next
}

// Result encodes v as a TagResult row.
func (e *Encoder) Result(v any) ([]byte, error) {
	payload, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode result: %w", err)
	}
	return e.row(TagResult, payload), nil
}

// RawResult emits an already encoded JSON value as a TagResult row.
func (e *Encoder) RawResult(payload json.RawMessage) []byte {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return e.row(TagResult, payload)
}

// HTML encodes a markup chunk as a TagHTML row. chunk should end on a
// UTF-8 boundary; invalid sequences are replaced by U+FFFD.
func (e *Encoder) HTML(chunk []byte) []byte {
	payload, _ := marshal(string(chunk))
	return e.row(TagHTML, payload)
}

// Error encodes a TagError row carrying message.
func (e *Encoder) Error(message string) []byte {
	payload, _ := marshal(ErrorPayload{Message: message})
	return e.row(TagError, payload)
}

func (e *Encoder) row(tag Tag, payload []byte) []byte {
	id := e.next
	e.next++
	return AppendRow(make([]byte, 0, len(payload)+12), id, tag, payload)
}

// ErrorPayload is the JSON body of a TagError row.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshal encodes v as compact JSON without HTML escaping.
// json.Encoder never emits a raw newline inside a value.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
