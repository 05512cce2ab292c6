package geoparse

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrEmptyPlace is returned for a place string that is empty once cleaned.
var ErrEmptyPlace = eris.New("geoparse: empty place string")

// InternalConsistencyError reports a hit id listed for a place string but
// absent from the hit set. It is a caller bug and fails the request.
type InternalConsistencyError struct {
	Place string
	ID    int64
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("geoparse: hit %d listed for %q is missing from the hit set", e.ID, e.Place)
}
