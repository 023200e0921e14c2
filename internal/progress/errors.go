package progress

import (
	"errors"
	"io/fs"
)

// Sentinel errors for the progress package.
// Use errors.Is to check: errors.Is(err, progress.ErrNotFound)
var (
	ErrIO       = errors.New("progress: resource unreadable or unwritable")
	ErrFormat   = errors.New("progress: resource content does not match schema")
	ErrNotFound = errors.New("progress: no record for card")
)

// IsMissing reports whether err means the resource does not exist yet,
// as opposed to existing but holding an empty collection.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
