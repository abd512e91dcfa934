package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/snaketasks/internal/config"
	"github.com/dshills/snaketasks/internal/integration"
	"github.com/dshills/snaketasks/internal/integration/process"
	"github.com/dshills/snaketasks/internal/integration/task"
	"github.com/dshills/snaketasks/internal/integration/task/sources"
)

// Options holds the command line settings for an Application.
type Options struct {
	// Workspace is the workspace root. Defaults to the working directory.
	Workspace string
	// ConfigPath is an explicit config file. When empty the workspace
	// file is used if present.
	ConfigPath string
	// LogLevel and LogFormat override the configured values when set.
	LogLevel  string
	LogFormat string
	// Command overrides the configured Snakemake executable when set.
	Command string

	// Stderr receives logs and the diagnostics channel. Defaults to os.Stderr.
	Stderr io.Writer

	// Runner replaces the shell invoker.
	Runner process.Runner
}

// Application owns the configuration, logger and integration manager.
type Application struct {
	workspace string
	config    *config.Config
	logger    *zap.Logger
	output    *task.Output
	events    *integration.EventBus
	manager   *integration.Manager
}

// New loads configuration and assembles an inactive Application.
func New(opts Options) (*Application, error) {
	workspace, err := resolveWorkspace(opts.Workspace)
	if err != nil {
		return nil, &InitError{Step: "resolve workspace", Err: err}
	}

	cfg, err := loadConfig(workspace, opts)
	if err != nil {
		return nil, &InitError{Step: "load config", Err: err}
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger, err := NewLogger(cfg.Log, stderr)
	if err != nil {
		return nil, &InitError{Step: "create logger", Err: err}
	}

	output := task.NewOutput(sources.OutputChannelName,
		task.WithOutputWriter(stderr),
		task.WithOutputLogger(logger.Named("output")),
	)
	events := integration.NewEventBus(logger)

	managerOpts := []integration.ManagerOption{
		integration.WithWorkspaceRoot(workspace),
		integration.WithCommand(cfg.Snakemake.Command),
		integration.WithDefinitionFile(cfg.Snakemake.DefinitionFile),
		integration.WithInvokerConfig(cfg.InvokerConfig()),
		integration.WithLogger(logger),
		integration.WithOutput(output),
		integration.WithEventBus(events),
	}
	if opts.Runner != nil {
		managerOpts = append(managerOpts, integration.WithRunner(opts.Runner))
	}

	return &Application{
		workspace: workspace,
		config:    cfg,
		logger:    logger,
		output:    output,
		events:    events,
		manager:   integration.NewManager(managerOpts...),
	}, nil
}

func resolveWorkspace(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return filepath.Abs(dir)
}

// loadConfig layers the config file, environment and flags over the
// defaults, then validates the result.
func loadConfig(workspace string, opts Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadRequired(opts.ConfigPath)
	} else {
		cfg, err = config.Load(config.DefaultPath(workspace))
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.Command != "" {
		cfg.Snakemake.Command = opts.Command
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Workspace returns the absolute workspace root.
func (app *Application) Workspace() string {
	return app.workspace
}

// Config returns the effective configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() *zap.Logger {
	return app.logger
}

// Output returns the diagnostics channel.
func (app *Application) Output() *task.Output {
	return app.output
}

// Integration returns the integration manager.
func (app *Application) Integration() *integration.Manager {
	return app.manager
}

// List activates discovery, returns one task list and deactivates.
func (app *Application) List(ctx context.Context) ([]*task.Task, error) {
	if err := app.manager.Activate(ctx); err != nil {
		return nil, err
	}
	defer app.manager.Deactivate()

	return app.manager.Provider().ProvideTasks(ctx)
}

// Watch activates discovery and calls fn with the task list, then again
// after every invalidation, until ctx is done.
func (app *Application) Watch(ctx context.Context, fn func([]*task.Task, error)) error {
	invalidated := make(chan struct{}, 1)
	id := app.events.Subscribe(integration.TopicInvalidated, func(map[string]any) {
		select {
		case invalidated <- struct{}{}:
		default:
		}
	})
	defer app.events.Unsubscribe(id)

	if err := app.manager.Activate(ctx); err != nil {
		return err
	}
	defer app.manager.Deactivate()

	provider := app.manager.Provider()
	fn(provider.ProvideTasks(ctx))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-invalidated:
			app.logger.Debug("refreshing task list", zap.String("working_directory", app.workspace))
			fn(provider.ProvideTasks(ctx))
		}
	}
}

// Shutdown deactivates discovery and flushes the logger.
func (app *Application) Shutdown() {
	_ = app.manager.Deactivate()
	app.logger.Debug("closing event bus", zap.Int("subscriptions", app.events.SubscriptionCount()))
	app.events.Close()
	_ = app.logger.Sync()
}
