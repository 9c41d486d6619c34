package gitstore

import "errors"

// Sentinel errors reported to the HTTP layer. Handlers map the not-found
// family to 404 and ErrInvalidPattern to 400.
var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrRevisionNotFound   = errors.New("revision not found")
	ErrPathNotFound       = errors.New("path not found")
	ErrNotAFile           = errors.New("path is not a file")
	ErrInvalidPattern     = errors.New("invalid pattern")
)
