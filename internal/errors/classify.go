package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/dispatch"
	"github.com/vango-dev/shipyard/pkg/reply"
	"github.com/vango-dev/shipyard/pkg/stream"
	"github.com/vango-dev/shipyard/pkg/upload"
)

// Invocation is checked first: an action may itself fail with an error
// that wraps another package's sentinel.
var sentinels = []struct {
	err  error
	code string
}{
	{dispatch.ErrActionInvocation, CodeActionInvocation},
	{action.ErrMalformedReference, CodeMalformedReference},
	{action.ErrModuleLoad, CodeModuleLoad},
	{action.ErrExportNotFound, CodeExportNotFound},
	{action.ErrUntrustedAction, CodeUntrustedAction},
	{reply.ErrMalformedMultipart, CodeMalformedMultipart},
	{reply.ErrIncompleteBody, CodeIncompleteBody},
	{upload.ErrTooLarge, CodeUploadTooLarge},
	{upload.ErrTypeNotAllowed, CodeUploadType},
	{stream.ErrTransportClosed, CodeTransportClosed},
	{stream.ErrRender, CodeRender},
}

// Classify returns err as an *Error. Errors already coded are returned
// as is; unknown errors become E900.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}
	for _, s := range sentinels {
		if stderrors.Is(err, s.err) {
			return New(s.code).Wrap(err)
		}
	}
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return New(CodeMalformedMultipart).Wrap(err)
	}
	return New(CodeInternal).Wrap(err)
}

// Body is the JSON error response.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes e as a JSON error response with its status.
func WriteJSON(w http.ResponseWriter, e *Error) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Body{Error: e.Public(), Code: e.Code})
}
