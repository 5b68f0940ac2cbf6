package tagstore

import "errors"

// Sentinel errors for the Tag Store contract and its bindings. Callers
// compare with errors.Is rather than matching strings.
var (
	// ErrTagUnknown is returned by get/set/initialize for an undeclared name.
	ErrTagUnknown = errors.New("tagstore: tag unknown")
	// ErrTagUninitialized is returned by get when no default has been written.
	ErrTagUninitialized = errors.New("tagstore: tag uninitialized")
	// ErrTransportFailure is returned by a networked binding (Redis) when the
	// underlying transport is unavailable.
	ErrTransportFailure = errors.New("tagstore: transport failure")
)
