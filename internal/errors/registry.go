package errors

import (
	"net/http"
	"sort"
)

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
	Status   int
}

// Codes used by Classify.
const (
	CodeMalformedReference = "E101"
	CodeModuleLoad         = "E102"
	CodeExportNotFound     = "E103"
	CodeUntrustedAction    = "E104"
	CodeMalformedMultipart = "E201"
	CodeIncompleteBody     = "E202"
	CodeUploadTooLarge     = "E203"
	CodeUploadType         = "E204"
	CodeActionInvocation   = "E301"
	CodeRender             = "E401"
	CodeTransportClosed    = "E402"
	CodeInvalidConfig      = "E501"
	CodeListen             = "E502"
	CodeInternal           = "E900"
)

// Every request failure is answered with 500: the client runtime treats any
// non-200 action response as a failed action and surfaces the message.
var registry = map[string]Template{
	// Resolve (E101-E199)
	CodeMalformedReference: {
		Category: CategoryResolve,
		Message:  "Malformed action reference",
		Detail:   "The rsc-action header must be modulePath#exportName with both parts non-empty.",
		Status:   http.StatusInternalServerError,
	},
	CodeModuleLoad: {
		Category: CategoryResolve,
		Message:  "Action module could not be loaded",
		Detail:   "No loader is registered for the module path, or its loader failed.",
		Status:   http.StatusInternalServerError,
	},
	CodeExportNotFound: {
		Category: CategoryResolve,
		Message:  "Action export not found",
		Detail:   "The module loaded but has no export with that name.",
		Status:   http.StatusInternalServerError,
	},
	CodeUntrustedAction: {
		Category: CategoryResolve,
		Message:  "Export is not a server action",
		Detail:   "Only exports wrapped with action.Server and listed in the manifest (when one is configured) can be invoked.",
		Status:   http.StatusInternalServerError,
	},

	// Decode (E201-E299)
	CodeMalformedMultipart: {
		Category: CategoryDecode,
		Message:  "Malformed action arguments",
		Detail:   "The request body is not a valid argument encoding.",
		Status:   http.StatusInternalServerError,
	},
	CodeIncompleteBody: {
		Category: CategoryDecode,
		Message:  "Incomplete action arguments",
		Detail:   "The request body ended before the terminating boundary.",
		Status:   http.StatusInternalServerError,
	},
	CodeUploadTooLarge: {
		Category: CategoryDecode,
		Message:  "Uploaded file too large",
		Status:   http.StatusInternalServerError,
	},
	CodeUploadType: {
		Category: CategoryDecode,
		Message:  "Uploaded file type not allowed",
		Status:   http.StatusInternalServerError,
	},

	// Invoke (E301-E399)
	CodeActionInvocation: {
		Category: CategoryInvoke,
		Message:  "Action failed",
		Detail:   "The server action returned an error or panicked.",
		Status:   http.StatusInternalServerError,
	},

	// Stream (E401-E499)
	CodeRender: {
		Category: CategoryStream,
		Message:  "Render failed",
		Status:   http.StatusInternalServerError,
	},
	CodeTransportClosed: {
		Category: CategoryStream,
		Message:  "Client went away",
		Detail:   "The transport closed before the stream finished. Nothing is sent back.",
		Status:   499,
	},

	// Config (E501-E599)
	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Status:   http.StatusInternalServerError,
	},
	CodeListen: {
		Category: CategoryConfig,
		Message:  "Could not listen",
		Detail:   "The address may be in use, or the process lacks permission to bind it.",
		Status:   http.StatusInternalServerError,
	},

	CodeInternal: {
		Category: CategoryInternal,
		Message:  "Internal error",
		Status:   http.StatusInternalServerError,
	},
}

// Codes returns every registered code in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
