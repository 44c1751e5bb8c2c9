package roster

import "errors"

// Sentinel kinds for roster errors. All of them end the fetch loop with a
// partial result; none is fatal to a run.
var (
	ErrFetchPage    = errors.New("fetch page failed")
	ErrUnknownShape = errors.New("unrecognized response shape")
	ErrPageLimit    = errors.New("page limit reached")
	ErrPagination   = errors.New("malformed pagination metadata")
)
