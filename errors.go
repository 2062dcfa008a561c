package hooks

import "errors"

// Service Lifecycle Errors
//
// These errors are returned based on the service's lifecycle state.

// ErrServiceClosed is returned when attempting to use a service that has
// been closed via Close(). All operations on a closed service return this
// error.
var ErrServiceClosed = errors.New("service is closed")

// ErrAlreadyClosed is returned when calling Close() on a service that has
// already been closed. This prevents double-cleanup.
var ErrAlreadyClosed = errors.New("service already closed")

// Registration Errors
//
// These errors are produced while adding callbacks or targets to the
// registry. Failures inside a batch registration are not returned to the
// caller; they are logged and counted in Metrics.RegistrationFailures,
// since registration is fire-and-forget.

// ErrInvalidCallback is returned when registering a zero-value or
// malformed callback (nil function, deferred reference without target or
// member, negative arity).
var ErrInvalidCallback = errors.New("invalid callback")

// ErrTooManyCallbacks is reported when a registration would exceed either
// maxCallbacksPerHook for a single name or maxTotalCallbacks across all
// names. These limits prevent unbounded memory growth from runaway
// registration.
var ErrTooManyCallbacks = errors.New("callback limit exceeded")

// Invocation Errors
//
// These errors terminate a Call fold immediately and surface to the
// caller of Call. They are never caught, retried or translated.

// ErrArityMismatch is returned when the runtime shape of the accumulator
// does not fit a callback's arity: a binary callback whose accumulator is
// not a 2-element []any, or a deferred reference of arity N whose
// accumulator is not an N-element []any.
var ErrArityMismatch = errors.New("accumulator shape does not match callback arity")

// ErrUnknownTarget is returned when a deferred reference names a target
// that has not been registered with RegisterTarget.
var ErrUnknownTarget = errors.New("unknown target")

// ErrUnknownMember is returned by a Target when the referenced member does
// not exist on it.
var ErrUnknownMember = errors.New("unknown member")

// ErrCallbackPanic is returned when a callback body panics during a fold.
// The panic is recovered on the owner goroutine so the registry stays
// alive; the fold terminates with no partial result.
var ErrCallbackPanic = errors.New("callback panicked during call")
