package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ContentType is the media type of a row stream.
const ContentType = "text/x-component"

// Tag identifies the payload kind of a row.
type Tag byte

const (
	TagResult Tag = 'D' // Injected action result
	TagHTML   Tag = 'H' // Markup chunk
	TagError  Tag = 'E' // Render failure
)

// String returns the string representation of the tag.
func (t Tag) String() string {
	switch t {
	case TagResult:
		return "Result"
	case TagHTML:
		return "HTML"
	case TagError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t == TagResult || t == TagHTML || t == TagError
}

// Row errors.
var (
	ErrMalformedRow = errors.New("protocol: malformed row")
	ErrUnknownTag   = errors.New("protocol: unknown row tag")
	ErrRowTooLarge  = errors.New("protocol: row exceeds size limit")
)

// Row is one line of a stream.
type Row struct {
	ID      uint64
	Tag     Tag
	Payload json.RawMessage
}

// Encode returns the wire form of the row, including the trailing newline.
func (r *Row) Encode() []byte {
	return AppendRow(nil, r.ID, r.Tag, r.Payload)
}

// AppendRow appends the wire form of a row to dst.
func AppendRow(dst []byte, id uint64, tag Tag, payload []byte) []byte {
	dst = strconv.AppendUint(dst, id, 16)
	dst = append(dst, ':', byte(tag))
	dst = append(dst, payload...)
	return append(dst, '\n')
}

// ParseRow parses a single row. The trailing newline is optional.
// The returned payload references line.
func ParseRow(line []byte) (*Row, error) {
	line = bytes.TrimSuffix(line, []byte{'\n'})

	idPart, rest, ok := bytes.Cut(line, []byte{':'})
	if !ok || len(idPart) == 0 || len(rest) == 0 {
		return nil, ErrMalformedRow
	}
	id, err := strconv.ParseUint(string(idPart), 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrMalformedRow, idPart)
	}

	tag := Tag(rest[0])
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, rest[0])
	}
	payload := rest[1:]
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid JSON payload", ErrMalformedRow)
	}

	return &Row{ID: id, Tag: tag, Payload: payload}, nil
}

// RowReader reads rows from a stream.
type RowReader struct {
	r       *bufio.Reader
	maxSize int
}

// NewRowReader creates a reader that rejects rows longer than MaxRowSize.
func NewRowReader(r io.Reader) *RowReader {
	return &RowReader{r: bufio.NewReader(r), maxSize: MaxRowSize}
}

// ReadRow reads the next row. It returns io.EOF at a clean end of stream
// and io.ErrUnexpectedEOF if the stream ends mid-row.
func (rr *RowReader) ReadRow() (*Row, error) {
	var line []byte
	for {
		frag, err := rr.r.ReadSlice('\n')
		line = append(line, frag...)
		if len(line) > rr.maxSize {
			return nil, ErrRowTooLarge
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err == io.EOF {
			if len(line) == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return ParseRow(line)
}
