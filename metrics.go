package hooks

// Metrics provides observability data for service monitoring.
// All counter fields use atomic operations for thread safety.
// Capacity fields are static and don't require atomics.
type Metrics struct {
	// Mailbox Metrics
	QueueDepth    int64 // Requests currently waiting in the mailbox (atomic)
	QueueCapacity int64 // Mailbox capacity (static)

	// Dispatch Counters (atomic operations required)
	CallsDispatched  int64 // Call invocations processed by the owner
	CallbacksInvoked int64 // Individual callback executions across all folds
	Halts            int64 // Folds stopped early by a Halt result
	CallFailures     int64 // Folds terminated by arity mismatch, target fault or panic

	// Registration Metrics
	RegisteredCallbacks  int64 // Callbacks currently registered across all names
	RegistrationFailures int64 // Registrations rejected (invalid callback, limits)

	// Timing
	LastCallNanos int64 // Duration of the most recent fold in nanoseconds
}
