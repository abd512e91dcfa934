// Package sources provides task discovery sources for build tools.
package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/dshills/snaketasks/internal/integration/process"
	"github.com/dshills/snaketasks/internal/integration/task"
)

const (
	// DefaultSnakemakeCommand is the Snakemake executable.
	DefaultSnakemakeCommand = "snakemake"

	// DefaultSnakefile is the workflow definition file name.
	DefaultSnakefile = "Snakefile"

	// OutputChannelName is the name of the diagnostics channel.
	OutputChannelName = "Snakemake Auto Detection"

	detectionFailedMessage = "Auto detecting snakemake tasks failed."
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// SnakemakeSource discovers Snakemake rules by running "snakemake --list"
// in the workspace root.
//
// It does not parse the Snakefile; the file only has to exist for the tool
// to be invoked. Tool failures are written to the output channel and
// reported as an empty task list.
type SnakemakeSource struct {
	runner         process.Runner
	output         task.OutputChannel
	command        string
	definitionFile string
	logger         *zap.Logger
}

// SnakemakeOption configures a SnakemakeSource.
type SnakemakeOption func(*SnakemakeSource)

// WithCommand sets the Snakemake executable.
func WithCommand(command string) SnakemakeOption {
	return func(s *SnakemakeSource) {
		if command != "" {
			s.command = command
		}
	}
}

// WithDefinitionFile sets the definition file name looked up in the root.
func WithDefinitionFile(name string) SnakemakeOption {
	return func(s *SnakemakeSource) {
		if name != "" {
			s.definitionFile = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) SnakemakeOption {
	return func(s *SnakemakeSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSnakemakeSource creates a Snakemake source that runs the tool through
// runner and writes diagnostics to output.
func NewSnakemakeSource(runner process.Runner, output task.OutputChannel, opts ...SnakemakeOption) *SnakemakeSource {
	s := &SnakemakeSource{
		runner:         runner,
		output:         output,
		command:        DefaultSnakemakeCommand,
		definitionFile: DefaultSnakefile,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source name.
func (s *SnakemakeSource) Name() string {
	return string(task.TaskTypeSnakemake)
}

// DefinitionFile returns the definition file name.
func (s *SnakemakeSource) DefinitionFile() string {
	return s.definitionFile
}

// DefinitionPath returns the definition file path under root.
func (s *SnakemakeSource) DefinitionPath(root string) string {
	return filepath.Join(root, s.definitionFile)
}

// ListCommand returns the command line used to list rules.
func (s *SnakemakeSource) ListCommand() string {
	return s.command + " --list"
}

// Discover lists the rules available under root.
//
// A missing definition file yields no tasks without running the tool. Any
// other error checking the file is returned as is.
func (s *SnakemakeSource) Discover(ctx context.Context, root string) ([]*task.Task, error) {
	path := s.DefinitionPath(root)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("no definition file", zap.String("path", path))
			return []*task.Task{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	out, err := s.runner.Run(ctx, s.ListCommand(), root)
	if err != nil {
		s.reportFailure(err)
		return []*task.Task{}, nil
	}

	if out.Stderr != "" {
		s.output.AppendLine(out.Stderr)
		s.output.Show(true)
	}

	tasks := s.parse(out.Stdout, root, path)
	s.logger.Debug("snakemake rules listed",
		zap.String("path", path),
		zap.Int("task_count", len(tasks)),
	)
	return tasks, nil
}

func (s *SnakemakeSource) reportFailure(err error) {
	var execErr *process.ExecError
	if errors.As(err, &execErr) {
		if execErr.Stderr != "" {
			s.output.AppendLine(execErr.Stderr)
		}
		if execErr.Stdout != "" {
			s.output.AppendLine(execErr.Stdout)
		}
	}
	s.output.AppendLine(detectionFailedMessage)
	s.output.Show(true)

	// The streams went to the output channel; keep them out of the log.
	if execErr != nil {
		s.logger.Warn("snakemake rule listing failed",
			zap.String("command", execErr.Command),
			zap.Int("exit_code", execErr.ExitCode),
			zap.Error(execErr.Cause),
		)
		return
	}
	s.logger.Warn("snakemake rule listing failed", zap.Error(err))
}

// parse turns the tool listing into tasks. Every non-empty line is a task
// name, kept verbatim.
func (s *SnakemakeSource) parse(stdout, root, path string) []*task.Task {
	lines := lineBreak.Split(stdout, -1)
	tasks := make([]*task.Task, 0, len(lines))

	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		tasks = append(tasks, &task.Task{
			ID:         fmt.Sprintf("%s:%s", task.TaskTypeSnakemake, line),
			Name:       line,
			Source:     s.Name(),
			SourceFile: path,
			Type:       task.TaskTypeSnakemake,
			Group:      task.Classify(line),
			Command:    s.command,
			Args:       []string{line},
			Cwd:        root,
		})
	}

	return tasks
}

var _ task.Source = (*SnakemakeSource)(nil)
