package model

import "errors"

// ErrNotFound is returned by stores when an event or purchase does not
// exist.  Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")
