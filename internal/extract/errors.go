package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ResourceMissingError reports a resource an extractor needs that is not
// available. It is raised by the pre-flight Check, never mid-request.
type ResourceMissingError struct {
	Resource string
	Err      error
}

func (e *ResourceMissingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract: resource missing: %s", e.Resource)
	}
	return fmt.Sprintf("extract: resource missing: %s: %v", e.Resource, e.Err)
}

func (e *ResourceMissingError) Unwrap() error { return e.Err }

// IsResourceMissing reports whether err carries a ResourceMissingError.
func IsResourceMissing(err error) bool {
	var rm *ResourceMissingError
	return errors.As(err, &rm)
}

// UnsupportedBackendError names an extractor backend that does not exist.
type UnsupportedBackendError struct {
	Backend string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("extract: backend %q not supported, use one of: %s",
		e.Backend, strings.Join(Backends, ", "))
}
