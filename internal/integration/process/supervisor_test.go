package process

import (
	"os/exec"
	"sync"
	"testing"
	"time"
)

func TestSupervisor_Start(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	proc, err := s.Start("echo", exec.Command("echo", "hello"))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if proc.ID == "" {
		t.Error("Start() should assign an ID")
	}

	<-proc.Done()
	waitForCount(t, s, 0)
}

func TestSupervisor_StartWithID_Duplicate(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	if _, err := s.StartWithID("dup", "sleep", exec.Command("sleep", "10")); err != nil {
		t.Fatalf("StartWithID() error = %v", err)
	}
	if _, err := s.StartWithID("dup", "sleep", exec.Command("sleep", "10")); err == nil {
		t.Error("StartWithID() with duplicate ID should fail")
	}
}

func TestSupervisor_StartFailureNotTracked(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	if _, err := s.Start("missing", exec.Command("/nonexistent/binary")); err == nil {
		t.Fatal("Start() should fail for a missing binary")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestSupervisor_WithProcessExitCallback(t *testing.T) {
	var mu sync.Mutex
	var exited []string

	s := NewSupervisor(WithProcessExitCallback(func(p *Process) {
		mu.Lock()
		exited = append(exited, p.ID)
		mu.Unlock()
	}))
	defer s.Shutdown(time.Second)

	proc, err := s.StartWithID("cb", "true", exec.Command("true"))
	if err != nil {
		t.Fatalf("StartWithID() error = %v", err)
	}
	<-proc.Done()
	waitForCount(t, s, 0)

	mu.Lock()
	defer mu.Unlock()
	if len(exited) != 1 || exited[0] != "cb" {
		t.Errorf("exit callback ids = %v, want [cb]", exited)
	}
}

func TestSupervisor_Terminate(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	proc, err := s.StartWithID("long", "sleep", exec.Command("sleep", "10"))
	if err != nil {
		t.Fatalf("StartWithID() error = %v", err)
	}

	if err := s.Terminate("long"); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}

	if err := s.Terminate("missing"); err != ErrProcessNotFound {
		t.Errorf("Terminate(missing) error = %v, want ErrProcessNotFound", err)
	}
}

func TestSupervisor_Shutdown(t *testing.T) {
	s := NewSupervisor()

	for i := 0; i < 3; i++ {
		if _, err := s.Start("sleep", exec.Command("sleep", "10")); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	s.Shutdown(2 * time.Second)

	if s.Count() != 0 {
		t.Errorf("Count() after Shutdown = %d, want 0", s.Count())
	}
	if !s.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after Shutdown")
	}

	// Idempotent.
	s.Shutdown(time.Second)

	if _, err := s.Start("echo", exec.Command("echo")); err != ErrSupervisorShutdown {
		t.Errorf("Start() after Shutdown error = %v, want ErrSupervisorShutdown", err)
	}
}

func waitForCount(t *testing.T, s *Supervisor, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Count() = %d, want %d", s.Count(), want)
}
