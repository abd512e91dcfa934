package process

import (
	"os/exec"
	"syscall"
	"testing"
	"time"
)

func TestNewProcess(t *testing.T) {
	cmd := exec.Command("echo", "hello")
	proc := NewProcess("test-id", "echo hello", cmd)

	if proc.ID != "test-id" {
		t.Errorf("ID = %q, want %q", proc.ID, "test-id")
	}
	if proc.State() != StateCreated {
		t.Errorf("State() = %v, want %v", proc.State(), StateCreated)
	}
	if proc.ExitCode() != -1 {
		t.Errorf("ExitCode() = %d, want -1", proc.ExitCode())
	}
	if proc.PID() != -1 {
		t.Errorf("PID() = %d, want -1 before start", proc.PID())
	}
	if proc.Runtime() != 0 {
		t.Errorf("Runtime() = %v, want 0 before start", proc.Runtime())
	}
}

func TestProcess_StartTwice(t *testing.T) {
	proc := NewProcess("test-id", "true", exec.Command("true"))

	if err := proc.start(); err != nil {
		t.Fatalf("start() error = %v", err)
	}
	<-proc.Done()

	if err := proc.start(); err != ErrProcessAlreadyStarted {
		t.Errorf("second start() error = %v, want ErrProcessAlreadyStarted", err)
	}
}

func TestProcess_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *exec.Cmd
		wantCode int
	}{
		{name: "success", cmd: exec.Command("true"), wantCode: 0},
		{name: "failure", cmd: exec.Command("false"), wantCode: 1},
		{name: "exit 42", cmd: exec.Command("sh", "-c", "exit 42"), wantCode: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := NewProcess("test-id", tt.name, tt.cmd)
			if err := proc.start(); err != nil {
				t.Fatalf("start() error = %v", err)
			}
			<-proc.Done()

			if proc.ExitCode() != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", proc.ExitCode(), tt.wantCode)
			}
			if tt.wantCode == 0 && proc.ExitError() != nil {
				t.Errorf("ExitError() = %v, want nil", proc.ExitError())
			}
			if tt.wantCode != 0 && proc.ExitError() == nil {
				t.Error("ExitError() = nil, want error")
			}
		})
	}
}

func TestProcess_Signal(t *testing.T) {
	proc := NewProcess("test-id", "sleep", exec.Command("sleep", "10"))
	if err := proc.start(); err != nil {
		t.Fatalf("start() error = %v", err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after SIGTERM")
	}

	if proc.State() != StateKilled {
		t.Errorf("State() = %v, want %v", proc.State(), StateKilled)
	}
}

func TestProcess_SignalNotStarted(t *testing.T) {
	proc := NewProcess("test-id", "true", exec.Command("true"))
	if err := proc.Signal(syscall.SIGTERM); err != ErrProcessNotStarted {
		t.Errorf("Signal() error = %v, want ErrProcessNotStarted", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateExited, "exited"},
		{StateKilled, "killed"},
		{State(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
