package hooks

import (
	"fmt"
	"reflect"
)

// Result is the value a callback invocation produces: either a continue
// signal carrying the next accumulator, or a halt signal carrying the
// final value for the whole chain.
//
// The zero Result is Continue(nil).
type Result struct {
	value  any
	halted bool
}

// Continue returns a Result that passes v to the next callback in the
// chain as its accumulator.
func Continue(v any) Result {
	return Result{value: v}
}

// Halt returns a Result that stops the chain immediately; v becomes the
// final value returned from Call and all later callbacks are skipped.
func Halt(v any) Result {
	return Result{value: v, halted: true}
}

// Value returns the carried accumulator or halted value.
func (r Result) Value() any { return r.value }

// Halted reports whether this result stops the chain.
func (r Result) Halted() bool { return r.halted }

// callbackKind discriminates the Callback union.
type callbackKind uint8

const (
	kindThunk callbackKind = iota + 1
	kindUnary
	kindBinary
	kindDeferred
)

// Callback is a registered unit of behavior: either an immediate function
// of arity 0, 1 or 2, or a deferred (target, member, arity) reference
// resolved against a registered Target at invocation time.
//
// Callbacks are compared by value for unregistration: immediate functions
// are equal when they share the same function identity, deferred
// references when their (target, member, arity) triples match. Note that
// function identity is code identity; two closures produced by the same
// function literal compare equal even if they capture different variables.
//
// The registry does not enforce that callbacks registered under one name
// agree on arity. Mixed-arity chains are permitted and fail only at call
// time, when the accumulator shape does not fit a callback.
type Callback struct {
	kind callbackKind

	thunk  func() Result
	unary  func(acc any) Result
	binary func(a, b any) Result

	target string
	member string
	arity  int
}

// Thunk wraps an arity-0 function as a Callback. The function receives no
// input; its Result still drives the fold (a Continue value becomes the
// next accumulator).
func Thunk(fn func() Result) Callback {
	return Callback{kind: kindThunk, thunk: fn}
}

// Unary wraps an arity-1 function as a Callback. The function receives the
// current accumulator.
func Unary(fn func(acc any) Result) Callback {
	return Callback{kind: kindUnary, unary: fn}
}

// Binary wraps an arity-2 function as a Callback. At call time the
// accumulator must be a 2-element []any; its elements are passed
// positionally and the Result value becomes the next accumulator. Chains
// of binary callbacks conventionally return a fresh 2-element []any,
// updating the first position and passing the second through.
func Binary(fn func(a, b any) Result) Callback {
	return Callback{kind: kindBinary, binary: fn}
}

// Deferred builds a callback from a (target, member, arity) triple. The
// target name is resolved against the service's registered Targets at
// invocation time, never eagerly, so targets may be registered after the
// callback. Arity is unrestricted:
//
//	arity 0: member invoked with no arguments
//	arity 1: member invoked with the accumulator
//	arity N: accumulator must be a []any of exactly N elements, spread
//	         positionally
func Deferred(target, member string, arity int) Callback {
	return Callback{kind: kindDeferred, target: target, member: member, arity: arity}
}

// IsDeferred reports whether the callback is a deferred reference.
func (c Callback) IsDeferred() bool { return c.kind == kindDeferred }

// Arity returns the declared arity of the callback.
func (c Callback) Arity() int {
	switch c.kind {
	case kindThunk:
		return 0
	case kindUnary:
		return 1
	case kindBinary:
		return 2
	case kindDeferred:
		return c.arity
	}
	return 0
}

// String renders the callback for logs and Status output.
func (c Callback) String() string {
	switch c.kind {
	case kindThunk:
		return "thunk/0"
	case kindUnary:
		return "func/1"
	case kindBinary:
		return "func/2"
	case kindDeferred:
		return fmt.Sprintf("%s.%s/%d", c.target, c.member, c.arity)
	}
	return "invalid"
}

// validate rejects zero-value and malformed callbacks before they reach
// storage. Registration of an invalid callback fails; it never becomes a
// call-time fault.
func (c Callback) validate() error {
	switch c.kind {
	case kindThunk:
		if c.thunk == nil {
			return fmt.Errorf("%w: nil thunk", ErrInvalidCallback)
		}
	case kindUnary:
		if c.unary == nil {
			return fmt.Errorf("%w: nil unary func", ErrInvalidCallback)
		}
	case kindBinary:
		if c.binary == nil {
			return fmt.Errorf("%w: nil binary func", ErrInvalidCallback)
		}
	case kindDeferred:
		if c.target == "" || c.member == "" {
			return fmt.Errorf("%w: deferred reference needs target and member", ErrInvalidCallback)
		}
		if c.arity < 0 {
			return fmt.Errorf("%w: negative arity %d", ErrInvalidCallback, c.arity)
		}
	default:
		return fmt.Errorf("%w: zero callback", ErrInvalidCallback)
	}
	return nil
}

// equal implements the unregistration equality: function identity for
// immediate callbacks, triple equality for deferred references.
func (c Callback) equal(o Callback) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case kindThunk:
		return funcID(c.thunk) == funcID(o.thunk)
	case kindUnary:
		return funcID(c.unary) == funcID(o.unary)
	case kindBinary:
		return funcID(c.binary) == funcID(o.binary)
	case kindDeferred:
		return c.target == o.target && c.member == o.member && c.arity == o.arity
	}
	return false
}

func funcID(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
