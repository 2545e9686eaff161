package repository

import "errors"

// ErrDuplicateKey reports a unique-index violation. Write paths that can
// race on an insert (two tabs joining with one session token, a double
// vote) check for it with errors.Is and fall back to the document that
// won the race.
var ErrDuplicateKey = errors.New("duplicate key")
