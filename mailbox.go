package hooks

import (
	"fmt"
	"sync/atomic"
)

// opKind discriminates mailbox requests.
type opKind uint8

const (
	opRegister opKind = iota + 1
	opUnregister
	opBatch
	opTarget
	opCall
	opStatus
	opReset
)

// request is one unit of work in the owner's mailbox. Mutations carry no
// reply channel; reads carry the channel the caller blocks on.
type request struct {
	op    opKind
	event Key

	callbacks []Callback // opRegister
	callback  Callback   // opUnregister
	bindings  []Binding  // opBatch
	target    Target     // opTarget
	data      any        // opCall

	callReply   chan callResult
	statusReply chan map[Key][]Callback
	resetReply  chan int
}

type callResult struct {
	value any
	err   error
}

// registryState is the full persistent state of the system, owned
// exclusively by the owner goroutine. No other goroutine ever touches it.
type registryState struct {
	entries map[Key][]Callback
	targets map[string]Target
	total   int
}

// run is the owner goroutine: a single-threaded actor processing a
// strictly ordered mailbox. Every registry mutation, every lookup and
// every entire Call fold (callback bodies included) happens here, which is
// what makes concurrent registration and invocation safe and totally
// ordered. A slow callback therefore stalls all other traffic until it
// returns; that is the documented tradeoff, not a bug.
func (s *Service) run(targets map[string]Target) {
	defer close(s.done)

	st := &registryState{
		entries: make(map[Key][]Callback),
		targets: targets,
	}

	for req := range s.requests {
		atomic.AddInt64(&s.metrics.QueueDepth, -1)
		s.handle(st, req)
	}
}

func (s *Service) handle(st *registryState, req request) {
	switch req.op {
	case opRegister:
		for _, cb := range req.callbacks {
			if err := s.insert(st, req.event, cb); err != nil {
				s.reportRegistrationFailure(req.event, cb, err)
			}
		}

	case opUnregister:
		s.remove(st, req.event, req.callback)

	case opBatch:
		s.applyBatch(st, req.bindings)

	case opTarget:
		st.targets[req.event] = req.target

	case opCall:
		start := s.clock.Now()
		value, err := s.fold(st, req.event, req.data)
		atomic.StoreInt64(&s.metrics.LastCallNanos, int64(s.clock.Now().Sub(start)))
		atomic.AddInt64(&s.metrics.CallsDispatched, 1)
		if err != nil {
			atomic.AddInt64(&s.metrics.CallFailures, 1)
		}
		req.callReply <- callResult{value: value, err: err}

	case opStatus:
		req.statusReply <- snapshot(st)

	case opReset:
		n := st.total
		st.entries = make(map[Key][]Callback)
		st.total = 0
		atomic.StoreInt64(&s.metrics.RegisteredCallbacks, 0)
		req.resetReply <- n
	}
}

// insert appends cb to the chain for event, enforcing resource limits.
func (s *Service) insert(st *registryState, event Key, cb Callback) error {
	if err := cb.validate(); err != nil {
		return err
	}
	if len(st.entries[event]) >= maxCallbacksPerHook {
		return fmt.Errorf("%w: %d callbacks on %q", ErrTooManyCallbacks, maxCallbacksPerHook, event)
	}
	if st.total >= maxTotalCallbacks {
		return fmt.Errorf("%w: %d callbacks registered", ErrTooManyCallbacks, maxTotalCallbacks)
	}

	st.entries[event] = append(st.entries[event], cb)
	st.total++
	atomic.AddInt64(&s.metrics.RegisteredCallbacks, 1)
	return nil
}

// remove deletes the first equal occurrence of cb, collapsing the entry
// when its chain empties. Absent callbacks and names are a no-op.
func (s *Service) remove(st *registryState, event Key, cb Callback) {
	chain := st.entries[event]
	for i, existing := range chain {
		if !existing.equal(cb) {
			continue
		}
		st.entries[event] = append(chain[:i], chain[i+1:]...)
		if len(st.entries[event]) == 0 {
			delete(st.entries, event)
		}
		st.total--
		atomic.AddInt64(&s.metrics.RegisteredCallbacks, -1)
		return
	}
}

// applyBatch inserts bindings in order, stopping at the first failure.
// Prior insertions stay applied; the failing entry and everything after it
// are skipped. The failure goes to the log and metrics side channel only,
// never back to the caller.
func (s *Service) applyBatch(st *registryState, bindings []Binding) {
	for _, b := range bindings {
		for _, cb := range b.Callbacks {
			if err := s.insert(st, b.Event, cb); err != nil {
				s.reportRegistrationFailure(b.Event, cb, err)
				return
			}
		}
	}
}

func (s *Service) reportRegistrationFailure(event Key, cb Callback, err error) {
	atomic.AddInt64(&s.metrics.RegistrationFailures, 1)
	s.logger.Error("hook registration failed",
		"event", event,
		"callback", cb.String(),
		"error", err)
}

// snapshot copies the full mapping so callers can inspect it without any
// view of later mutations.
func snapshot(st *registryState) map[Key][]Callback {
	out := make(map[Key][]Callback, len(st.entries))
	for event, chain := range st.entries {
		cp := make([]Callback, len(chain))
		copy(cp, chain)
		out[event] = cp
	}
	return out
}

// fold runs the dispatch loop for one Call: fetch the chain, thread the
// accumulator left to right, stop on Halt or fault. A panic anywhere in a
// callback body is recovered here so the owner goroutine survives; the
// fold still fails with no partial result.
func (s *Service) fold(st *registryState, event Key, data any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("%w: %q: %v", ErrCallbackPanic, event, r)
		}
	}()

	// Unknown hook is a transparent pass-through, not an error.
	chain := st.entries[event]
	if len(chain) == 0 {
		return data, nil
	}

	acc := data
	for _, cb := range chain {
		res, err := s.invoke(st, cb, acc)
		if err != nil {
			return nil, fmt.Errorf("call %q (%s): %w", event, cb.String(), err)
		}
		atomic.AddInt64(&s.metrics.CallbacksInvoked, 1)
		if res.Halted() {
			atomic.AddInt64(&s.metrics.Halts, 1)
			return res.Value(), nil
		}
		acc = res.Value()
	}
	return acc, nil
}

// invoke executes one callback against the current accumulator according
// to its arity.
func (s *Service) invoke(st *registryState, cb Callback, acc any) (Result, error) {
	switch cb.kind {
	case kindThunk:
		return cb.thunk(), nil

	case kindUnary:
		return cb.unary(acc), nil

	case kindBinary:
		pair, ok := acc.([]any)
		if !ok || len(pair) != 2 {
			return Result{}, fmt.Errorf("%w: binary callback needs a 2-element accumulator, got %s",
				ErrArityMismatch, describe(acc))
		}
		return cb.binary(pair[0], pair[1]), nil

	case kindDeferred:
		target, ok := st.targets[cb.target]
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownTarget, cb.target)
		}
		args, err := deferredArgs(cb.arity, acc)
		if err != nil {
			return Result{}, err
		}
		return target.Invoke(cb.member, args)
	}
	return Result{}, fmt.Errorf("%w: zero callback in chain", ErrInvalidCallback)
}

// deferredArgs builds the positional argument list for a deferred
// reference: arity 0 ignores the accumulator, arity 1 passes it whole,
// arity N spreads an N-element []any accumulator.
func deferredArgs(arity int, acc any) ([]any, error) {
	switch arity {
	case 0:
		return nil, nil
	case 1:
		return []any{acc}, nil
	default:
		seq, ok := acc.([]any)
		if !ok || len(seq) != arity {
			return nil, fmt.Errorf("%w: arity-%d reference needs a %d-element accumulator, got %s",
				ErrArityMismatch, arity, arity, describe(acc))
		}
		return seq, nil
	}
}

func describe(v any) string {
	if seq, ok := v.([]any); ok {
		return fmt.Sprintf("[]any of length %d", len(seq))
	}
	return fmt.Sprintf("%T", v)
}
