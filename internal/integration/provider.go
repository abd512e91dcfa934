package integration

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/snaketasks/internal/integration/task"
)

// Provider is the host's registry of task providers, keyed by task type.
//
// It plays the editor side of task discovery: the task UI asks the
// Provider for every task and it fans out to the registered providers.
type Provider struct {
	mu        sync.RWMutex
	providers map[task.TaskType]task.TaskProvider
	order     []task.TaskType
	logger    *zap.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the logger.
func WithProviderLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates an empty provider registry.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		providers: make(map[task.TaskType]task.TaskProvider),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registration is the handle returned by RegisterTaskProvider.
type Registration struct {
	provider *Provider
	taskType task.TaskType
	target   task.TaskProvider
	once     sync.Once
}

// TaskType returns the registered task type.
func (r *Registration) TaskType() task.TaskType {
	return r.taskType
}

// Dispose unregisters the provider. It is safe to call more than once.
func (r *Registration) Dispose() {
	r.once.Do(func() {
		r.provider.unregister(r.taskType, r.target)
	})
}

// RegisterTaskProvider registers tp for taskType.
func (p *Provider) RegisterTaskProvider(taskType task.TaskType, tp task.TaskProvider) (*Registration, error) {
	if taskType == "" {
		return nil, ErrInvalidTaskType
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.providers[taskType]; ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderRegistered, taskType)
	}
	p.providers[taskType] = tp
	p.order = append(p.order, taskType)

	p.logger.Debug("task provider registered", zap.String("type", string(taskType)))
	return &Registration{provider: p, taskType: taskType, target: tp}, nil
}

func (p *Provider) unregister(taskType task.TaskType, tp task.TaskProvider) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.providers[taskType] != tp {
		return
	}
	delete(p.providers, taskType)
	for i, t := range p.order {
		if t == taskType {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	p.logger.Debug("task provider unregistered", zap.String("type", string(taskType)))
}

// TaskTypes returns the registered task types in registration order.
func (p *Provider) TaskTypes() []task.TaskType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	types := make([]task.TaskType, len(p.order))
	copy(types, p.order)
	return types
}

// ProvideTasks returns the tasks of every registered provider, in
// registration order. The first provider error is returned.
func (p *Provider) ProvideTasks(ctx context.Context) ([]*task.Task, error) {
	p.mu.RLock()
	targets := make([]task.TaskProvider, 0, len(p.order))
	for _, t := range p.order {
		targets = append(targets, p.providers[t])
	}
	p.mu.RUnlock()

	all := []*task.Task{}
	for _, tp := range targets {
		tasks, err := tp.ProvideTasks(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return all, nil
}

// ResolveTask delegates to the provider registered for def.Type. Unknown
// types resolve to nil.
func (p *Provider) ResolveTask(ctx context.Context, def task.TaskDefinition) (*task.Task, error) {
	p.mu.RLock()
	tp, ok := p.providers[def.Type]
	p.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return tp.ResolveTask(ctx, def)
}

var _ task.TaskProvider = (*Provider)(nil)
