// Package federation holds the errors shared by the components speaking
// ActivityPub to other instances.
package federation

import "errors"

var (
	ErrMissingProperty        = errors.New("missing property")
	ErrUnprocessablePropValue = errors.New("unprocessable property value")
	// ErrActorFetch wraps any network or decode failure while dereferencing a
	// remote actor.
	ErrActorFetch = errors.New("actor fetch failed")
	// ErrUnrecoverable marks a message that must never be retried: bad
	// signatures, references to rows that do not exist, malformed activities.
	// Queue processors dead-letter these instead of handing them back to the
	// retry policy.
	ErrUnrecoverable = errors.New("unrecoverable")
)
