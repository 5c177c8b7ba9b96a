package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the store.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty tag, unknown calibration type).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrAlreadyTagged is returned by AddTag when the tag is already active on the
// calibration at the requested instant. The no-op is surfaced rather than
// swallowed so clients can distinguish "new state" from "nothing changed".
// Handlers should map this to HTTP 409 Conflict.
var ErrAlreadyTagged = errors.New("tag already active")

// ErrNotTagged is returned by RemoveTag when the tag is not active on the
// calibration at the requested instant. Removing a tag that was never added
// is a caller mistake, not a silent success.
// Handlers should map this to HTTP 409 Conflict.
var ErrNotTagged = errors.New("tag not active")

// ErrIntegrity is returned by the ledger when an append would break the
// ADD/REMOVE alternation for a (tag, calibration) pair. The ledger never
// corrects history silently; the caller sees a conflict.
// Handlers should map this to HTTP 409 Conflict.
var ErrIntegrity = errors.New("ledger integrity violation")
