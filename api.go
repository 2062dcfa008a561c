// Package hooks provides a process-wide named hook registry and dispatcher:
// callers register callbacks under a symbolic name and later invoke every
// callback registered under that name, in registration order, threading an
// accumulator value through the chain with the ability to halt early.
//
// It is a generic extension-point primitive (a plugin/middleware chain), not
// tied to any particular domain.
//
// Basic Usage:
//
//	svc := hooks.New()
//	defer svc.Close()
//
//	// Register callbacks for a hook name
//	svc.Register("user.scrub", hooks.Unary(func(acc any) hooks.Result {
//		m := acc.(map[string]any)
//		m["scrubbed"] = true
//		return hooks.Continue(m)
//	}))
//
//	// Invoke the chain, threading an accumulator through it
//	out, err := svc.Call(ctx, "user.scrub", map[string]any{})
//
// Halting Early:
//
// A callback may stop the remaining chain by returning Halt; the halted
// value becomes the final result and later callbacks never run:
//
//	svc.Register("auth.check", hooks.Unary(func(acc any) hooks.Result {
//		if denied(acc) {
//			return hooks.Halt(acc)
//		}
//		return hooks.Continue(acc)
//	}))
//
// Deferred References:
//
// Besides immediate functions, a callback may be a deferred reference: a
// (target, member, arity) triple resolved at invocation time against a
// registered Target. Deferred references are the only callback form that
// static configuration can express (see LoadConfig):
//
//	svc.RegisterTarget("sanitizer", hooks.NewMethodTarget(&Sanitizer{}))
//	svc.Register("mail.out", hooks.Deferred("sanitizer", "ScrubMail", 1))
//
// Concurrency Model:
//
// The whole service is a single serialization domain. One owner goroutine
// processes a strictly ordered mailbox of requests: every registration,
// every lookup, and every entire Call fold (callback bodies included) runs
// on that goroutine. Two Calls never execute concurrently, even for
// different hook names, and a slow callback stalls all other traffic until
// it returns. Consistency over throughput is the deliberate tradeoff.
//
// Register and Unregister are fire-and-forget: they return once the request
// is accepted into the mailbox, but requests are applied in submission
// order, so a Call issued afterwards from the same goroutine observes them.
// Call, Status and Reset block until the owner replies.
//
// There is no timeout or cancellation for an in-flight fold. The Call
// context is consulted only while waiting for mailbox space; once accepted,
// the caller blocks until the fold finishes. A callback must never invoke
// Call on its own service: the owner would wait on itself forever.
package hooks

// Key identifies a hook: an opaque name chosen by the caller. There is no
// predeclared namespace; any name may be registered on first use.
//
// Use package-level constants for hook names:
//
//	const (
//		MailOutgoing Key = "mail.outgoing"
//		UserCreated  Key = "user.created"
//	)
type Key = string

// Binding associates one hook name with an ordered list of callbacks.
// A slice of Bindings is the bulk-registration form accepted by
// RegisterBatch and produced by config loading; slice order is preserved
// so bulk registration stays deterministic.
type Binding struct {
	Event     Key
	Callbacks []Callback
}
