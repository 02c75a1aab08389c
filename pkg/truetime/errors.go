package truetime

import "errors"

var (
	ErrResolution         = errors.New("host did not resolve")
	ErrNoResultsAvailable = errors.New("no server produced a usable result")
	ErrNotInitialized     = errors.New("true time was not initialized successfully yet")
	ErrInvalidParameters  = errors.New("invalid parameters")
)
