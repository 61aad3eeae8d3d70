package rate

import "errors"

// ErrBackendUnavailable indicates the Redis backend could not answer.
// Callers decide the fail-open/fail-closed policy; the engine fails closed.
var ErrBackendUnavailable = errors.New("rate limit backend unavailable")
