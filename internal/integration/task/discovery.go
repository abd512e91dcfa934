package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DiscoveryState describes the cache slot of a Discovery.
type DiscoveryState int

const (
	// DiscoveryEmpty means no pass is cached; the next request starts one.
	DiscoveryEmpty DiscoveryState = iota
	// DiscoveryPending means a pass has been started and is retained,
	// whether or not it has finished.
	DiscoveryPending
)

// String returns the state name.
func (s DiscoveryState) String() string {
	switch s {
	case DiscoveryEmpty:
		return "empty"
	case DiscoveryPending:
		return "pending"
	default:
		return "unknown"
	}
}

// DiscoveryObserver receives notifications about discovery passes.
// Implementations must be safe for concurrent use.
type DiscoveryObserver interface {
	// PassCompleted is called after every pass with its duration, the number
	// of tasks found, and the pass error, if any.
	PassCompleted(duration time.Duration, tasks int, err error)

	// Invalidated is called whenever the cache slot is cleared.
	Invalidated()
}

// discoveryCall is one discovery pass. done is closed once tasks and err
// are final; every caller attached to the call sees the same outcome.
type discoveryCall struct {
	done  chan struct{}
	tasks []*Task
	err   error
}

// Discovery memoizes the task list of a single source and root.
//
// At most one pass is cached at a time. A pass is stored in the slot before
// it starts running, so requests that arrive while it is still in flight
// attach to it instead of starting another. Invalidate clears the slot
// without waiting; callers already attached still get the old pass's
// result, and the next request starts a fresh pass.
//
// Discovery is safe for concurrent use.
type Discovery struct {
	source Source
	root   string

	mu     sync.Mutex
	call   *discoveryCall
	passes int

	logger   *zap.Logger
	observer DiscoveryObserver
}

// DiscoveryOption configures a Discovery.
type DiscoveryOption func(*Discovery)

// WithDiscoveryLogger sets the logger.
func WithDiscoveryLogger(logger *zap.Logger) DiscoveryOption {
	return func(d *Discovery) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver sets an observer for pass and invalidation events.
func WithObserver(o DiscoveryObserver) DiscoveryOption {
	return func(d *Discovery) {
		d.observer = o
	}
}

// NewDiscovery creates a Discovery for source rooted at root.
func NewDiscovery(source Source, root string, opts ...DiscoveryOption) *Discovery {
	d := &Discovery{
		source: source,
		root:   root,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the workspace root passed to the source.
func (d *Discovery) Root() string {
	return d.root
}

// SourceName returns the name of the wrapped source.
func (d *Discovery) SourceName() string {
	return d.source.Name()
}

// State reports whether a pass is currently cached.
func (d *Discovery) State() DiscoveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.call == nil {
		return DiscoveryEmpty
	}
	return DiscoveryPending
}

// Passes returns how many discovery passes have been started.
func (d *Discovery) Passes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passes
}

// Tasks returns the cached task list, starting a pass if none is cached.
//
// ctx only bounds how long this caller waits. The pass itself is never
// cancelled and keeps running for other callers.
func (d *Discovery) Tasks(ctx context.Context) ([]*Task, error) {
	d.mu.Lock()
	call := d.call
	if call == nil {
		call = &discoveryCall{done: make(chan struct{})}
		d.call = call
		d.passes++
		go d.run(call)
	}
	d.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		tasks := make([]*Task, len(call.tasks))
		copy(tasks, call.tasks)
		return tasks, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Discovery) run(call *discoveryCall) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			call.tasks = nil
			call.err = fmt.Errorf("%s discovery panicked: %v", d.source.Name(), r)
		}
		if call.err == nil && call.tasks == nil {
			call.tasks = []*Task{}
		}

		elapsed := time.Since(start)
		if call.err != nil {
			d.logger.Error("task discovery failed",
				zap.String("source", d.source.Name()),
				zap.String("root", d.root),
				zap.Error(call.err),
			)
		} else {
			d.logger.Debug("task discovery completed",
				zap.String("source", d.source.Name()),
				zap.Int("task_count", len(call.tasks)),
				zap.Duration("duration", elapsed),
			)
		}
		if d.observer != nil {
			d.observer.PassCompleted(elapsed, len(call.tasks), call.err)
		}
		close(call.done)
	}()

	call.tasks, call.err = d.source.Discover(context.Background(), d.root)
}

// Invalidate clears the cache slot. An in-flight pass is not waited on.
func (d *Discovery) Invalidate() {
	d.mu.Lock()
	d.call = nil
	d.mu.Unlock()

	d.logger.Debug("task cache invalidated", zap.String("source", d.source.Name()))
	if d.observer != nil {
		d.observer.Invalidated()
	}
}

// ProvideTasks implements TaskProvider.
func (d *Discovery) ProvideTasks(ctx context.Context) ([]*Task, error) {
	return d.Tasks(ctx)
}

// ResolveTask implements TaskProvider. Only bulk discovery is supported, so
// individual definitions are never resolved.
func (d *Discovery) ResolveTask(ctx context.Context, def TaskDefinition) (*Task, error) {
	return nil, nil
}

var _ TaskProvider = (*Discovery)(nil)
