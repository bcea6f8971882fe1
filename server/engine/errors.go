package engine

import "errors"

// Error taxonomy. Every rejected mutation wraps one of these sentinels so
// callers can branch with errors.Is while the audit log keeps the full
// message.
var (
	// ErrInvalidTransition marks an illegal state-machine move. The command
	// is rejected and state is unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrLookup marks a missing strategy or deviation table entry. No
	// default action is guessed.
	ErrLookup = errors.New("no table entry")

	// ErrConfig marks malformed or missing session configuration. Fatal to
	// session start.
	ErrConfig = errors.New("invalid configuration")

	// ErrStaleOverride marks a card correction outside the allowed window.
	// The original observation is retained.
	ErrStaleOverride = errors.New("override outside correction window")
)
