package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/vango-dev/shipyard/pkg/upload"
)

var (
	// ErrMalformedMultipart is returned for a body that is not a valid
	// multipart payload: bad content type, corrupt boundary or part headers,
	// or a part that breaks the configured limits.
	ErrMalformedMultipart = errors.New("reply: malformed multipart body")

	// ErrIncompleteBody is returned when the body ends before the
	// terminating boundary.
	ErrIncompleteBody = errors.New("reply: body ended before terminating boundary")
)

// BlobPrefix marks a part as a binary payload. A string inside a JSON part
// equal to a blob part's name is replaced by that file; a JSON string
// starting with "$$" stands for the same string with one "$" dropped.
// Plain text parts are never rewritten.
const BlobPrefix = "$B"

// Config bounds what Decode accepts.
type Config struct {
	// MaxParts caps the number of parts, blobs included.
	MaxParts int

	// MaxFieldBytes caps a single non-file part.
	MaxFieldBytes int64

	// AllowedTypes restricts file content types (see upload.TypeAllowed).
	AllowedTypes []string

	// Store receives file parts. Defaults to an in-memory store.
	Store upload.Store
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxParts:      128,
		MaxFieldBytes: 1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxParts <= 0 {
		c.MaxParts = d.MaxParts
	}
	if c.MaxFieldBytes <= 0 {
		c.MaxFieldBytes = d.MaxFieldBytes
	}
	if c.Store == nil {
		c.Store = upload.NewMemoryStore(0)
	}
	return c
}

// Decode reads action arguments from body. On error every file already
// stored is released.
func Decode(ctx context.Context, body io.Reader, header http.Header, cfg Config) (Args, error) {
	cfg = cfg.withDefaults()

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: content type: %v", ErrMalformedMultipart, err)
	}

	switch mediaType {
	case "multipart/form-data", "multipart/mixed":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("%w: missing boundary", ErrMalformedMultipart)
		}
		d := &decoder{ctx: ctx, cfg: cfg, blobs: make(map[string]*upload.File), boundary: boundary}
		args, err := d.decode(body)
		if err != nil {
			d.release(args)
			return nil, err
		}
		return args, nil
	case "application/json":
		return decodeJSONBody(body)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrMalformedMultipart, mediaType)
	}
}

type decoder struct {
	ctx      context.Context
	cfg      Config
	boundary string
	blobs    map[string]*upload.File
}

type partKind int

const (
	partText partKind = iota
	partFile
	partJSON
	partBlob
)

func (d *decoder) decode(body io.Reader) (Args, error) {
	w := newCloseWatcher(body, d.boundary)
	mr := multipart.NewReader(w, d.boundary)

	var args Args
	var jsonArgs []int
	parts := 0
	for {
		if err := d.ctx.Err(); err != nil {
			return args, err
		}

		part, err := mr.NextPart()
		if err == io.EOF {
			// NextPart also reports a bare EOF when the input ends inside
			// a part's headers.
			if !w.closed {
				return args, fmt.Errorf("%w: missing close delimiter", ErrIncompleteBody)
			}
			break
		}
		if err != nil {
			if w.eof && !w.closed && w.couldOpen() {
				return args, fmt.Errorf("%w: %v", ErrIncompleteBody, err)
			}
			return args, d.classify(err, parts, w, true)
		}
		parts++
		if parts > d.cfg.MaxParts {
			part.Close()
			return args, fmt.Errorf("%w: more than %d parts", ErrMalformedMultipart, d.cfg.MaxParts)
		}

		arg, kind, err := d.readPart(part)
		part.Close()
		if err != nil {
			return args, d.classify(err, parts, w, false)
		}
		switch kind {
		case partBlob:
			continue
		case partJSON:
			jsonArgs = append(jsonArgs, len(args))
		}
		args = append(args, arg)
	}

	for _, i := range jsonArgs {
		v, err := d.resolve(args[i].Value)
		if err != nil {
			return args, err
		}
		args[i].Value = v
	}

	// Blobs nobody referenced are released now.
	referenced := make(map[*upload.File]bool)
	for _, f := range args.files() {
		referenced[f] = true
	}
	for name, f := range d.blobs {
		if !referenced[f] {
			f.Close()
		}
		delete(d.blobs, name)
	}
	return args, nil
}

func (d *decoder) readPart(part *multipart.Part) (Arg, partKind, error) {
	name := part.FormName()
	filename := part.FileName()
	contentType := part.Header.Get("Content-Type")
	isBlob := strings.HasPrefix(name, BlobPrefix)

	if filename != "" || isBlob {
		f, err := d.store(part, filename, contentType)
		if err != nil {
			return Arg{}, partFile, err
		}
		if isBlob {
			if _, dup := d.blobs[name]; dup {
				f.Close()
				return Arg{}, partBlob, fmt.Errorf("%w: duplicate blob part %q", ErrMalformedMultipart, name)
			}
			d.blobs[name] = f
			return Arg{}, partBlob, nil
		}
		return Arg{Name: name, Value: f}, partFile, nil
	}

	data, err := io.ReadAll(io.LimitReader(part, d.cfg.MaxFieldBytes+1))
	if err != nil {
		return Arg{}, partText, err
	}
	if int64(len(data)) > d.cfg.MaxFieldBytes {
		return Arg{}, partText, fmt.Errorf("%w: part %q exceeds %d bytes", ErrMalformedMultipart, name, d.cfg.MaxFieldBytes)
	}

	if mt, _, _ := mime.ParseMediaType(contentType); mt == "application/json" {
		v, err := decodeJSON(data)
		if err != nil {
			return Arg{}, partJSON, fmt.Errorf("%w: part %q: %v", ErrMalformedMultipart, name, err)
		}
		return Arg{Name: name, Value: v}, partJSON, nil
	}
	return Arg{Name: name, Value: string(data)}, partText, nil
}

func (d *decoder) store(part *multipart.Part, filename, contentType string) (*upload.File, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !upload.TypeAllowed(d.cfg.AllowedTypes, contentType) {
		return nil, fmt.Errorf("%w: %w: %s", ErrMalformedMultipart, upload.ErrTypeNotAllowed, contentType)
	}

	tempID, err := d.cfg.Store.Save(d.ctx, filename, contentType, part)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedMultipart, err)
		}
		return nil, err
	}
	return d.cfg.Store.Claim(d.ctx, tempID)
}

// resolve swaps blob references inside a JSON value for their files and
// unescapes "$$" strings.
func (d *decoder) resolve(v any) (any, error) {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "$$") {
			return t[1:], nil
		}
		if !strings.HasPrefix(t, BlobPrefix) {
			return t, nil
		}
		f, ok := d.blobs[t]
		if !ok {
			return nil, fmt.Errorf("%w: reference to missing blob %q", ErrMalformedMultipart, t)
		}
		return f, nil
	case []any:
		for i, e := range t {
			r, err := d.resolve(e)
			if err != nil {
				return nil, err
			}
			t[i] = r
		}
		return t, nil
	case map[string]any:
		for k, e := range t {
			r, err := d.resolve(e)
			if err != nil {
				return nil, err
			}
			t[k] = r
		}
		return t, nil
	default:
		return v, nil
	}
}

// classify maps reader failures onto the decoder taxonomy. A stream that
// ends early is incomplete, unless nothing it carried could have opened a
// multipart body. Any other failure to find the next part means the
// framing itself is corrupt.
func (d *decoder) classify(err error, parts int, w *closeWatcher, framing bool) error {
	if errors.Is(err, ErrMalformedMultipart) || errors.Is(err, ErrIncompleteBody) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		if parts == 0 && !w.couldOpen() {
			return fmt.Errorf("%w: no boundary found", ErrMalformedMultipart)
		}
		return fmt.Errorf("%w: %v", ErrIncompleteBody, err)
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedMultipart, maxErr.Limit)
	}
	if framing {
		return fmt.Errorf("%w: %v", ErrMalformedMultipart, err)
	}
	return err
}

func (d *decoder) release(args Args) {
	args.Close()
	for _, f := range d.blobs {
		f.Close()
	}
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers turns json.Number into int64 when exact, else float64.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
	}
	return v
}

func decodeJSONBody(body io.Reader) (Args, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, fmt.Errorf("%w: %v", ErrIncompleteBody, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedMultipart, err)
	}
	args := make(Args, len(values))
	for i, v := range values {
		args[i] = Arg{Name: strconv.Itoa(i), Value: normalizeNumbers(v)}
	}
	return args, nil
}

// closeWatcher passes a multipart body through and records whether the
// close delimiter ("--boundary--" at the start of a line) went by. It also
// keeps the first bytes to tell a truncated opening from a foreign body.
type closeWatcher struct {
	r      io.Reader
	open   []byte // "--boundary"
	needle []byte // "\n--boundary--"
	head   []byte
	tail   []byte
	n      int64
	eof    bool
	closed bool
}

func newCloseWatcher(r io.Reader, boundary string) *closeWatcher {
	open := []byte("--" + boundary)
	return &closeWatcher{
		r:      r,
		open:   open,
		needle: append([]byte("\n"), append(open, '-', '-')...),
	}
}

func (w *closeWatcher) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if n > 0 {
		chunk := p[:n]
		if want := len(w.open) + 2 - len(w.head); want > 0 {
			w.head = append(w.head, chunk[:min(n, want)]...)
		}
		if !w.closed {
			w.scan(chunk)
		}
		w.n += int64(n)
	}
	if err == io.EOF {
		w.eof = true
	}
	return n, err
}

func (w *closeWatcher) scan(chunk []byte) {
	if bytes.HasPrefix(w.head, w.needle[1:]) {
		w.closed = true
		return
	}
	buf := append(append([]byte(nil), w.tail...), chunk...)
	if bytes.Contains(buf, w.needle) {
		w.closed = true
		return
	}
	keep := len(w.needle) - 1
	if len(buf) > keep {
		buf = buf[len(buf)-keep:]
	}
	w.tail = buf
}

// couldOpen reports whether the bytes seen so far are the start of a
// multipart body, or a prefix of one. An empty stream counts.
func (w *closeWatcher) couldOpen() bool {
	return bytes.HasPrefix(w.open, w.head) || bytes.HasPrefix(w.head, w.open)
}
