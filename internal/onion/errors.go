package onion

import "errors"

var (
	// ErrNoService is returned when an operation needs a published
	// hidden service but none is active. Run setup first.
	ErrNoService = errors.New("no hidden service is active: run setup before requesting the onion address")

	// ErrMissingKeyMaterial is returned when provided-key persistence
	// is requested without a key blob to provide.
	ErrMissingKeyMaterial = errors.New("provided-key mode requires key material: set the key blob or switch to ephemeral mode")
)
