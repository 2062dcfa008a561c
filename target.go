package hooks

import (
	"fmt"
	"reflect"
)

// Target resolves deferred-reference members at invocation time. A target
// is registered under a name with RegisterTarget; a Deferred callback
// names the target and one of its members.
//
// Invoke is always executed on the service's owner goroutine, so
// implementations do not need their own synchronization against other
// hook traffic. An error from Invoke terminates the fold and surfaces to
// the caller of Call.
type Target interface {
	Invoke(member string, args []any) (Result, error)
}

// MethodTarget adapts an arbitrary Go value into a Target by resolving
// exported methods by name with reflection, at call time rather than
// registration time.
//
// A resolved method may use any of these shapes:
//
//	func (t *T) M(...)                     // Continue(nil)
//	func (t *T) M(...) Result              // used as-is
//	func (t *T) M(...) V                   // Continue(v)
//	func (t *T) M(...) (V, error)          // error terminates the fold
//	func (t *T) M(...) (Result, error)     // error terminates the fold
//
// The number of parameters must equal the deferred reference's arity and
// each argument must be assignable to the parameter type; anything else
// reports ErrArityMismatch.
type MethodTarget struct {
	recv reflect.Value
}

// NewMethodTarget wraps recv as a Target. Pass a pointer if the methods
// have pointer receivers.
func NewMethodTarget(recv any) *MethodTarget {
	return &MethodTarget{recv: reflect.ValueOf(recv)}
}

// Invoke implements Target.
func (t *MethodTarget) Invoke(member string, args []any) (Result, error) {
	m := t.recv.MethodByName(member)
	if !m.IsValid() {
		return Result{}, fmt.Errorf("%w: %s has no method %q", ErrUnknownMember, t.recv.Type(), member)
	}

	mt := m.Type()
	if mt.IsVariadic() {
		return Result{}, fmt.Errorf("%w: variadic method %q cannot be a deferred member", ErrUnknownMember, member)
	}
	if mt.NumIn() != len(args) {
		return Result{}, fmt.Errorf("%w: %q takes %d arguments, got %d",
			ErrArityMismatch, member, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := mt.In(i)
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(arg)
		if !av.Type().AssignableTo(pt) {
			return Result{}, fmt.Errorf("%w: %q argument %d needs %s, got %s",
				ErrArityMismatch, member, i, pt, av.Type())
		}
		in[i] = av
	}

	out := m.Call(in)
	return resultFromReturns(out)
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// resultFromReturns maps a method's return values onto the fold protocol.
func resultFromReturns(out []reflect.Value) (Result, error) {
	if len(out) == 0 {
		return Continue(nil), nil
	}

	// A trailing error return terminates the fold when non-nil.
	last := out[len(out)-1]
	if last.Type().Implements(errType) {
		if !last.IsNil() {
			return Result{}, last.Interface().(error)
		}
		out = out[:len(out)-1]
		if len(out) == 0 {
			return Continue(nil), nil
		}
	}

	v := out[0].Interface()
	if r, ok := v.(Result); ok {
		return r, nil
	}
	return Continue(v), nil
}

// FuncTarget is a Target backed by a plain map of member name to
// function. It is a lightweight alternative to MethodTarget when the
// members are closures rather than methods on a value.
//
// Member functions take the positional argument list and return a Result.
type FuncTarget map[string]func(args []any) (Result, error)

// Invoke implements Target.
func (t FuncTarget) Invoke(member string, args []any) (Result, error) {
	fn, ok := t[member]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMember, member)
	}
	return fn(args)
}
