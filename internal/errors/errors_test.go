package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/dispatch"
	"github.com/vango-dev/shipyard/pkg/reply"
	"github.com/vango-dev/shipyard/pkg/stream"
	"github.com/vango-dev/shipyard/pkg/upload"
)

func TestNew(t *testing.T) {
	tests := []struct {
		code       string
		wantCat    Category
		wantStatus int
	}{
		{CodeMalformedReference, CategoryResolve, 500},
		{CodeIncompleteBody, CategoryDecode, 500},
		{CodeActionInvocation, CategoryInvoke, 500},
		{CodeTransportClosed, CategoryStream, 499},
		{"E999", CategoryInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code)
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", err.Status, tt.wantStatus)
			}
		})
	}
}

func TestCodesAreRegistered(t *testing.T) {
	codes := Codes()
	if len(codes) == 0 {
		t.Fatal("no codes registered")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("Codes() not sorted at %d: %v", i, codes)
		}
	}
	for _, s := range sentinels {
		if _, ok := Lookup(s.code); !ok {
			t.Errorf("sentinel %v maps to unregistered code %s", s.err, s.code)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"malformed reference", fmt.Errorf("%w: %q", action.ErrMalformedReference, "nohash"), CodeMalformedReference},
		{"module load", action.ErrModuleLoad, CodeModuleLoad},
		{"export", action.ErrExportNotFound, CodeExportNotFound},
		{"untrusted", action.ErrUntrustedAction, CodeUntrustedAction},
		{"multipart", reply.ErrMalformedMultipart, CodeMalformedMultipart},
		{"refused type stays malformed", fmt.Errorf("%w: %w", reply.ErrMalformedMultipart, upload.ErrTypeNotAllowed), CodeMalformedMultipart},
		{"incomplete", reply.ErrIncompleteBody, CodeIncompleteBody},
		{"too large", upload.ErrTooLarge, CodeUploadTooLarge},
		{"invocation wins", fmt.Errorf("%w: %w", dispatch.ErrActionInvocation, upload.ErrNotFound), CodeActionInvocation},
		{"dispatch error", &dispatch.Error{Stage: dispatch.StageResolve, Err: action.ErrExportNotFound}, CodeExportNotFound},
		{"render", stream.ErrRender, CodeRender},
		{"transport", stream.ErrTransportClosed, CodeTransportClosed},
		{"max bytes", &http.MaxBytesError{Limit: 10}, CodeMalformedMultipart},
		{"unknown", stderrors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Code != tt.want {
				t.Errorf("Classify(%v).Code = %s, want %s", tt.err, got.Code, tt.want)
			}
			if !stderrors.Is(got, tt.err) && !stderrors.Is(got.Wrapped, tt.err) {
				t.Errorf("Classify(%v) does not wrap the original error", tt.err)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) != nil")
	}
	coded := New(CodeListen)
	if Classify(fmt.Errorf("serve: %w", coded)) != coded {
		t.Error("Classify did not return the coded error in the chain")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, Classify(fmt.Errorf("%w: %q", action.ErrMalformedReference, "x")))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var body Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Code != CodeMalformedReference {
		t.Errorf("code = %q", body.Code)
	}
	if body.Error != `action: malformed reference: "x"` {
		t.Errorf("error = %q", body.Error)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeInvalidConfig).
		Wrap(stderrors.New("port must be between 1 and 65535")).
		WithSuggestion("Set PORT or port: in shipyard.yaml")
	out := err.Format()
	for _, want := range []string{"ERROR E501: Invalid configuration", "port must be between", "Hint: Set PORT"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if err.FormatCompact() != "E501: Invalid configuration" {
		t.Errorf("FormatCompact() = %q", err.FormatCompact())
	}
	if got := err.Error(); got != "E501: port must be between 1 and 65535" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFprintPlainError(t *testing.T) {
	DisableColors()
	defer EnableColors()
	var b strings.Builder
	Fprint(&b, stderrors.New("plain"))
	if !strings.Contains(b.String(), "ERROR: plain") {
		t.Errorf("Fprint() = %q", b.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line too long: %q", l)
		}
	}
}
