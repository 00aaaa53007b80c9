package action

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates module path and export name in a reference.
const Delimiter = "#"

// Resolution errors.
var (
	ErrMalformedReference = errors.New("action: malformed reference")
	ErrModuleLoad         = errors.New("action: module load failed")
	ErrExportNotFound     = errors.New("action: export not found")
	ErrUntrustedAction    = errors.New("action: export is not a server action")
)

// Reference names an export of an action module.
type Reference struct {
	ModulePath string
	ExportName string
}

// String returns the wire form of the reference.
func (r Reference) String() string {
	return r.ModulePath + Delimiter + r.ExportName
}

// ParseReference splits token into module path and export name. Both parts
// must be non-empty and the delimiter must occur exactly once.
func ParseReference(token string) (Reference, error) {
	modulePath, exportName, ok := strings.Cut(token, Delimiter)
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q has no %q", ErrMalformedReference, token, Delimiter)
	}
	if modulePath == "" || exportName == "" {
		return Reference{}, fmt.Errorf("%w: %q has an empty part", ErrMalformedReference, token)
	}
	if strings.Contains(exportName, Delimiter) {
		return Reference{}, fmt.Errorf("%w: %q has more than one %q", ErrMalformedReference, token, Delimiter)
	}
	return Reference{ModulePath: modulePath, ExportName: exportName}, nil
}
