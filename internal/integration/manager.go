package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/snaketasks/internal/integration/process"
	"github.com/dshills/snaketasks/internal/integration/task"
	"github.com/dshills/snaketasks/internal/integration/task/sources"
	"github.com/dshills/snaketasks/internal/project/watcher"
)

// Manager activates Snakemake task discovery for one workspace.
//
// Activation builds the discovery cache, registers it with the host
// Provider and watches the definition file. Every change, creation or
// deletion of that file invalidates the cache.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu sync.RWMutex

	workspaceRoot   string
	command         string
	definitionFile  string
	invokerConfig   process.InvokerConfig
	shutdownTimeout time.Duration

	logger   *zap.Logger
	output   task.OutputChannel
	provider *Provider
	eventBus EventPublisher
	metrics  *Metrics
	runner   process.Runner

	// Set while active.
	active       bool
	invoker      *process.Invoker
	discovery    *task.Discovery
	watcher      watcher.Watcher
	registration *Registration
	stopCh       chan struct{}
	loopDone     chan struct{}
	activatedAt  time.Time
}

// ManagerOption configures a Manager instance.
type ManagerOption func(*Manager)

// WithWorkspaceRoot sets the workspace root directory.
func WithWorkspaceRoot(root string) ManagerOption {
	return func(m *Manager) {
		m.workspaceRoot = root
	}
}

// WithCommand sets the Snakemake executable.
func WithCommand(command string) ManagerOption {
	return func(m *Manager) {
		m.command = command
	}
}

// WithDefinitionFile sets the definition file name.
func WithDefinitionFile(name string) ManagerOption {
	return func(m *Manager) {
		m.definitionFile = name
	}
}

// WithInvokerConfig sets the configuration of the owned invoker.
func WithInvokerConfig(cfg process.InvokerConfig) ManagerOption {
	return func(m *Manager) {
		m.invokerConfig = cfg
	}
}

// WithRunner replaces the owned invoker with runner.
func WithRunner(runner process.Runner) ManagerOption {
	return func(m *Manager) {
		m.runner = runner
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithOutput sets the diagnostics channel.
func WithOutput(out task.OutputChannel) ManagerOption {
	return func(m *Manager) {
		m.output = out
	}
}

// WithProvider sets the host provider registry.
func WithProvider(p *Provider) ManagerOption {
	return func(m *Manager) {
		m.provider = p
	}
}

// WithEventBus sets the event publisher.
func WithEventBus(eb EventPublisher) ManagerOption {
	return func(m *Manager) {
		m.eventBus = eb
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout for child processes.
func WithShutdownTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.shutdownTimeout = timeout
	}
}

// NewManager creates an inactive manager. Call Activate to start discovery.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		command:         sources.DefaultSnakemakeCommand,
		definitionFile:  sources.DefaultSnakefile,
		invokerConfig:   process.DefaultInvokerConfig(),
		shutdownTimeout: 5 * time.Second,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.output == nil {
		m.output = task.NewOutput(sources.OutputChannelName, task.WithOutputLogger(m.logger))
	}
	if m.provider == nil {
		m.provider = NewProvider(WithProviderLogger(m.logger))
	}
	if m.metrics == nil {
		m.metrics = NewMetrics()
	}
	return m
}

// Activate starts task discovery for the workspace.
func (m *Manager) Activate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return ErrAlreadyActive
	}
	if m.workspaceRoot == "" {
		return ErrWorkspaceNotSet
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runner := m.runner
	var inv *process.Invoker
	if runner == nil {
		inv = process.NewInvoker(m.invokerConfig, process.WithLogger(m.logger))
		runner = inv
	}

	source := sources.NewSnakemakeSource(runner, m.output,
		sources.WithCommand(m.command),
		sources.WithDefinitionFile(m.definitionFile),
		sources.WithLogger(m.logger),
	)
	watchedPath := source.DefinitionPath(m.workspaceRoot)

	disc := task.NewDiscovery(source, m.workspaceRoot,
		task.WithDiscoveryLogger(m.logger),
		task.WithObserver(&discoveryObserver{m: m}),
	)

	w, err := watcher.NewFileWatcher(watchedPath, watcher.WithLogger(m.logger))
	if err != nil {
		m.shutdownInvoker(inv)
		return fmt.Errorf("watch %s: %w", watchedPath, err)
	}

	reg, err := m.provider.RegisterTaskProvider(task.TaskTypeSnakemake, disc)
	if err != nil {
		_ = w.Close()
		m.shutdownInvoker(inv)
		return err
	}

	m.invoker = inv
	m.discovery = disc
	m.watcher = w
	m.registration = reg
	m.stopCh = make(chan struct{})
	m.loopDone = make(chan struct{})
	m.activatedAt = time.Now()
	m.active = true

	go m.watchLoop(w, disc, m.stopCh, m.loopDone)

	m.logger.Info("snakemake task discovery activated",
		zap.String("working_directory", m.workspaceRoot),
		zap.String("path", watchedPath),
		zap.String("source", disc.SourceName()),
	)
	m.publish(TopicActivated, map[string]any{
		"workspace": m.workspaceRoot,
		"path":      watchedPath,
	})
	return nil
}

// Deactivate unregisters the provider, stops watching and shuts down child
// processes. It is safe to call on an inactive manager.
func (m *Manager) Deactivate() error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = false
	reg, w, inv := m.registration, m.watcher, m.invoker
	stopCh, loopDone := m.stopCh, m.loopDone
	uptime := time.Since(m.activatedAt)
	m.registration, m.watcher, m.invoker, m.discovery = nil, nil, nil, nil
	m.mu.Unlock()

	reg.Dispose()
	close(stopCh)
	<-loopDone
	err := w.Close()
	m.shutdownInvoker(inv)

	m.logger.Info("snakemake task discovery deactivated",
		zap.String("working_directory", m.workspaceRoot),
		zap.Duration("uptime", uptime),
	)
	m.publish(TopicDeactivated, map[string]any{
		"workspace": m.workspaceRoot,
		"uptime":    uptime.String(),
	})
	return err
}

// IsActive reports whether the manager is active.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Tasks returns the current Snakemake tasks.
func (m *Manager) Tasks(ctx context.Context) ([]*task.Task, error) {
	disc := m.Discovery()
	if disc == nil {
		return nil, ErrNotActive
	}
	return disc.Tasks(ctx)
}

// Discovery returns the active discovery cache, or nil when inactive.
func (m *Manager) Discovery() *task.Discovery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.discovery
}

// WatchedPath returns the definition file path being watched.
func (m *Manager) WatchedPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.watcher != nil {
		return m.watcher.Path()
	}
	return ""
}

// WorkspaceRoot returns the configured workspace root.
func (m *Manager) WorkspaceRoot() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workspaceRoot
}

// Provider returns the host provider registry.
func (m *Manager) Provider() *Provider {
	return m.provider
}

// Output returns the diagnostics channel.
func (m *Manager) Output() task.OutputChannel {
	return m.output
}

// Metrics returns the metrics sink.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Supervisor returns the supervisor of the owned invoker, or nil when the
// manager is inactive or uses an injected runner.
func (m *Manager) Supervisor() *process.Supervisor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.invoker == nil {
		return nil
	}
	return m.invoker.Supervisor()
}

func (m *Manager) watchLoop(w watcher.Watcher, disc *task.Discovery, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return

		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			m.metrics.WatchEvent(ev.Op)
			m.logger.Debug("definition file event",
				zap.String("path", ev.Path),
				zap.Stringer("op", ev.Op),
			)
			disc.Invalidate()

		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			m.logger.Warn("definition file watch error", zap.Error(err))
		}
	}
}

func (m *Manager) shutdownInvoker(inv *process.Invoker) {
	if inv != nil {
		inv.Supervisor().Shutdown(m.shutdownTimeout)
	}
}

// publish sends an event with a copy of data if an event bus is configured.
func (m *Manager) publish(topic string, data map[string]any) {
	if m.eventBus == nil {
		return
	}
	eventData := make(map[string]any, len(data)+1)
	for k, v := range data {
		eventData[k] = v
	}
	eventData["timestamp"] = time.Now().UnixMilli()
	m.eventBus.Publish(topic, eventData)
}

// discoveryObserver forwards discovery notifications to metrics and the
// event bus.
type discoveryObserver struct {
	m *Manager
}

func (o *discoveryObserver) PassCompleted(d time.Duration, tasks int, err error) {
	o.m.metrics.PassCompleted(d, tasks, err)

	data := map[string]any{
		"workspace":  o.m.workspaceRoot,
		"task_count": tasks,
		"duration":   d.String(),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	o.m.publish(TopicDiscovered, data)
}

func (o *discoveryObserver) Invalidated() {
	o.m.metrics.Invalidated()
	o.m.publish(TopicInvalidated, map[string]any{
		"workspace": o.m.workspaceRoot,
	})
}
