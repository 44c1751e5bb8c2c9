package submit

import "errors"

// ErrSubmit marks a submission the transport could not complete.
var ErrSubmit = errors.New("submit assessment failed")
