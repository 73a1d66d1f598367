package validation

import "errors"

// MaxBodyBytes caps request bodies. The largest legitimate body is an event
// with a long description.
const MaxBodyBytes = 64 << 10

// ErrPayloadTooLarge is returned when a request body exceeds MaxBodyBytes.
var ErrPayloadTooLarge = errors.New("payload too large")
