package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// Option configures a Service during creation.
type Option func(*config)

// config holds internal configuration for service creation.
type config struct {
	clock     clockz.Clock // Time abstraction for deterministic testing
	logger    *slog.Logger
	queueSize int
	targets   map[string]Target
}

// WithClock sets the clock implementation for time operations.
// Default is clockz.RealClock for production use.
// Use clockz.FakeClock for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the logger used for the registration-failure side
// channel and config loading. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithQueueSize sets the mailbox capacity. Default is 64. A full mailbox
// makes mutating operations block until the owner drains a slot; it never
// reorders or drops requests.
func WithQueueSize(size int) Option {
	return func(c *config) {
		c.queueSize = size
	}
}

// WithTarget registers a deferred-reference target before the owner
// starts, so static configuration applied at startup can resolve it.
func WithTarget(name string, target Target) Option {
	return func(c *config) {
		c.targets[name] = target
	}
}

// Resource limits prevent unbounded memory growth from runaway
// registration. These limits are enforced during callback registration.
const (
	maxCallbacksPerHook = 100   // Prevents a single name from dominating memory
	maxTotalCallbacks   = 10000 // Caps registration across all names
)

const defaultQueueSize = 64

// Service is the hook registry and dispatcher. It owns the only piece of
// persistent state in the system: the mapping from hook name to ordered
// callback list.
//
// Construct one Service at process start with New, pass it by reference to
// whichever components expose hooks, and Close it at shutdown. All methods
// are safe for concurrent use; see the package documentation for the
// serialization model.
type Service struct {
	clock  clockz.Clock
	logger *slog.Logger

	requests chan request
	done     chan struct{} // closed when the owner goroutine exits

	mu     sync.RWMutex // guards closed against concurrent submit/Close
	closed bool

	// Metrics field - zero initialization provides safe defaults
	metrics Metrics
}

// New creates a Service and starts its owner goroutine.
//
// Default configuration:
//   - clockz.RealClock
//   - slog.Default() logging
//   - mailbox capacity 64
//
// Example:
//
//	svc := hooks.New(
//	    hooks.WithQueueSize(256),
//	    hooks.WithTarget("sanitizer", hooks.NewMethodTarget(&Sanitizer{})),
//	)
//	defer svc.Close()
func New(opts ...Option) *Service {
	cfg := config{
		clock:     clockz.RealClock,
		queueSize: defaultQueueSize,
		targets:   make(map[string]Target),
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	s := &Service{
		clock:    cfg.clock,
		logger:   cfg.logger,
		requests: make(chan request, cfg.queueSize),
		done:     make(chan struct{}),
	}
	atomic.StoreInt64(&s.metrics.QueueCapacity, int64(cfg.queueSize))

	go s.run(cfg.targets)
	return s
}

// Register appends one or more callbacks to the chain for event, in the
// given order, creating the entry on first use. Registering the same
// callback twice yields two entries and both will run.
//
// Registration is fire-and-forget: Register returns once the request is
// accepted into the mailbox. Requests are applied in submission order, so
// a Call issued afterwards observes the registration. A registration the
// owner rejects (callback limits) is logged and counted in
// Metrics.RegistrationFailures rather than returned here.
//
// Malformed callbacks are rejected eagerly with ErrInvalidCallback.
func (s *Service) Register(event Key, callbacks ...Callback) error {
	for _, cb := range callbacks {
		if err := cb.validate(); err != nil {
			return err
		}
	}
	return s.submit(request{op: opRegister, event: event, callbacks: callbacks})
}

// RegisterBatch applies an ordered set of bindings as if Register had been
// called for each one in turn.
//
// The batch is deliberately not atomic. If an entry fails during
// insertion, processing stops immediately: bindings before the failing one
// stay applied, the failing binding and everything after it are not. The
// failure is logged and counted in Metrics.RegistrationFailures; it is
// never returned to the caller, because registration is fire-and-forget.
func (s *Service) RegisterBatch(bindings []Binding) error {
	return s.submit(request{op: opBatch, bindings: bindings})
}

// RegisterTarget makes target resolvable by deferred references under the
// given name. Registering a name twice replaces the previous target.
func (s *Service) RegisterTarget(name string, target Target) error {
	return s.submit(request{op: opTarget, event: name, target: target})
}

// Unregister removes the first occurrence of callback from the chain for
// event, comparing by callback equality (function identity for immediate
// callbacks, triple equality for deferred references). When the last
// callback is removed the entry disappears entirely, so Status no longer
// reports the name. Unregistering an absent callback, or from a name never
// registered, is a no-op.
func (s *Service) Unregister(event Key, callback Callback) error {
	return s.submit(request{op: opUnregister, event: event, callback: callback})
}

// Call invokes every callback registered under event, in registration
// order, folding data through the chain:
//
//   - Each callback receives the current accumulator according to its
//     arity and returns a Result.
//   - A Continue result's value becomes the next accumulator.
//   - A Halt result stops the fold; its value is returned and all later
//     callbacks are skipped.
//   - Exhausting the chain returns the final accumulator.
//
// Calling a name with no registrations is not an error: data is returned
// unchanged. Pass nil data for the no-input form.
//
// An arity mismatch, a target fault or a panic inside a callback body
// terminates the fold immediately with no partial result; the error
// surfaces here and nowhere else. There is no retry.
//
// ctx is consulted only while waiting for mailbox space. Once the request
// is accepted, Call blocks until the fold completes; an in-flight fold
// cannot be cancelled.
func (s *Service) Call(ctx context.Context, event Key, data any) (any, error) {
	reply := make(chan callResult, 1)
	req := request{op: opCall, event: event, data: data, callReply: reply}

	if err := s.submitCtx(ctx, req); err != nil {
		return nil, err
	}
	res := <-reply
	return res.value, res.err
}

// Status returns a consistent point-in-time snapshot of every currently
// registered name and its ordered callback chain. Names whose last
// callback was unregistered do not appear.
func (s *Service) Status() (map[Key][]Callback, error) {
	reply := make(chan map[Key][]Callback, 1)
	if err := s.submit(request{op: opStatus, statusReply: reply}); err != nil {
		return nil, err
	}
	return <-reply, nil
}

// Reset atomically clears every entry and returns the number of callbacks
// removed. A subsequent Status returns an empty mapping. Registered
// targets survive a Reset.
func (s *Service) Reset() (int, error) {
	reply := make(chan int, 1)
	if err := s.submit(request{op: opReset, resetReply: reply}); err != nil {
		return 0, err
	}
	return <-reply, nil
}

// Metrics returns current service metrics. Counter values are read
// atomically; the snapshot is internally consistent enough for monitoring
// but is not serialized against in-flight folds.
func (s *Service) Metrics() Metrics {
	return Metrics{
		QueueDepth:           atomic.LoadInt64(&s.metrics.QueueDepth),
		QueueCapacity:        atomic.LoadInt64(&s.metrics.QueueCapacity),
		CallsDispatched:      atomic.LoadInt64(&s.metrics.CallsDispatched),
		CallbacksInvoked:     atomic.LoadInt64(&s.metrics.CallbacksInvoked),
		Halts:                atomic.LoadInt64(&s.metrics.Halts),
		CallFailures:         atomic.LoadInt64(&s.metrics.CallFailures),
		RegisteredCallbacks:  atomic.LoadInt64(&s.metrics.RegisteredCallbacks),
		RegistrationFailures: atomic.LoadInt64(&s.metrics.RegistrationFailures),
		LastCallNanos:        atomic.LoadInt64(&s.metrics.LastCallNanos),
	}
}

// Close shuts down the service. Requests already in the mailbox are
// processed before the owner exits; Close blocks until it has. All
// operations after Close return ErrServiceClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	s.closed = true
	close(s.requests)
	s.mu.Unlock()

	<-s.done
	return nil
}

// submit enqueues a request, blocking if the mailbox is full. The lock
// prevents a send racing with the channel close in Close.
func (s *Service) submit(req request) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrServiceClosed
	}
	s.requests <- req
	atomic.AddInt64(&s.metrics.QueueDepth, 1)
	return nil
}

// submitCtx is submit with a context bounding the wait for mailbox space.
func (s *Service) submitCtx(ctx context.Context, req request) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrServiceClosed
	}
	select {
	case s.requests <- req:
		atomic.AddInt64(&s.metrics.QueueDepth, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
