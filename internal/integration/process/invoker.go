package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Output is the captured result of a successful command.
type Output struct {
	Stdout string
	Stderr string
}

// ExecError reports a command that could not be started or exited with a
// failure status. It carries whatever output was captured before the failure.
type ExecError struct {
	Command  string
	Dir      string
	Stdout   string
	Stderr   string
	ExitCode int
	Cause    error
}

// Error describes the failure.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q in %s failed", e.Command, e.Dir)
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s with exit code %d", msg, e.ExitCode)
	}
	if detail := firstLine(e.Stderr); detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	} else if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying failure.
func (e *ExecError) Unwrap() error {
	return e.Cause
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Runner runs a shell command line in a directory.
type Runner interface {
	Run(ctx context.Context, command, dir string) (Output, error)
}

// InvokerConfig configures an Invoker.
type InvokerConfig struct {
	// Shell is the shell used to interpret command lines.
	Shell string

	// ShellArgs precede the command line, usually "-c".
	ShellArgs []string

	// MaxConcurrent caps simultaneously running children (0 = 4).
	MaxConcurrent int

	// WaitDelay bounds how long output pipes stay open after the shell
	// exits, e.g. when a background grandchild inherited them (0 = 2s).
	WaitDelay time.Duration
}

// DefaultInvokerConfig uses $SHELL, falling back to /bin/sh.
func DefaultInvokerConfig() InvokerConfig {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return InvokerConfig{
		Shell:         shell,
		ShellArgs:     []string{"-c"},
		MaxConcurrent: 4,
		WaitDelay:     2 * time.Second,
	}
}

// Invoker runs external tools as supervised child processes and captures
// their output. Each Run spawns exactly one child; there is no retry and no
// timeout, so a hanging tool hangs the caller.
type Invoker struct {
	config     InvokerConfig
	supervisor *Supervisor
	sem        *semaphore.Weighted
	logger     *zap.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLogger sets the invoker logger.
func WithLogger(logger *zap.Logger) InvokerOption {
	return func(i *Invoker) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithSupervisor sets the supervisor used to track children.
func WithSupervisor(s *Supervisor) InvokerOption {
	return func(i *Invoker) {
		if s != nil {
			i.supervisor = s
		}
	}
}

// NewInvoker creates an invoker.
func NewInvoker(config InvokerConfig, opts ...InvokerOption) *Invoker {
	defaults := DefaultInvokerConfig()
	if config.Shell == "" {
		config.Shell = defaults.Shell
	}
	if config.ShellArgs == nil {
		config.ShellArgs = defaults.ShellArgs
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.WaitDelay <= 0 {
		config.WaitDelay = defaults.WaitDelay
	}

	inv := &Invoker{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.supervisor == nil {
		inv.supervisor = NewSupervisor(WithProcessExitCallback(inv.processExited))
	}
	return inv
}

func (inv *Invoker) processExited(p *Process) {
	inv.logger.Debug("process exited",
		zap.String("process_id", p.ID),
		zap.String("command", p.Name),
		zap.Int("exit_code", p.ExitCode()),
		zap.Duration("runtime", p.Runtime()),
	)
}

// Supervisor returns the supervisor tracking this invoker's children.
func (inv *Invoker) Supervisor() *Supervisor {
	return inv.supervisor
}

// Run executes command through the shell in dir.
//
// A non-empty stderr alone is not a failure. A failed start or a failing
// exit status is returned as *ExecError. ctx only bounds the wait for a
// free process slot; once started, the child runs to completion.
func (inv *Invoker) Run(ctx context.Context, command, dir string) (Output, error) {
	if inv.supervisor.IsShuttingDown() {
		return Output{}, &ExecError{Command: command, Dir: dir, ExitCode: -1, Cause: ErrSupervisorShutdown}
	}
	if err := inv.sem.Acquire(ctx, 1); err != nil {
		return Output{}, &ExecError{Command: command, Dir: dir, ExitCode: -1, Cause: err}
	}
	defer inv.sem.Release(1)

	var stdout, stderr bytes.Buffer

	args := append(append([]string{}, inv.config.ShellArgs...), command)
	cmd := exec.Command(inv.config.Shell, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = inv.config.WaitDelay

	proc, err := inv.supervisor.Start(command, cmd)
	if err != nil {
		inv.logger.Error("command start failed",
			zap.String("command", command),
			zap.String("working_directory", dir),
			zap.Error(err),
		)
		return Output{}, &ExecError{Command: command, Dir: dir, ExitCode: -1, Cause: err}
	}

	inv.logger.Debug("command started",
		zap.String("command", command),
		zap.String("working_directory", dir),
		zap.String("process_id", proc.ID),
		zap.Int("pid", proc.PID()),
	)

	<-proc.Done()

	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if exitErr := proc.ExitError(); exitErr != nil {
		// Callers report the streams; stderr is only logged for debugging.
		inv.logger.Debug("command failed",
			zap.String("command", command),
			zap.String("process_id", proc.ID),
			zap.Int("exit_code", proc.ExitCode()),
			zap.String("stderr", out.Stderr),
		)
		return Output{}, &ExecError{
			Command:  command,
			Dir:      dir,
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
			ExitCode: proc.ExitCode(),
			Cause:    exitErr,
		}
	}

	inv.logger.Debug("command completed",
		zap.String("command", command),
		zap.String("process_id", proc.ID),
		zap.Duration("runtime", proc.Runtime()),
	)
	return out, nil
}

var _ Runner = (*Invoker)(nil)
