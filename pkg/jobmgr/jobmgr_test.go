package jobmgr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestManager_StartAsync(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})

	err := m.StartAsync("work", func(ctx context.Context) error {
		<-done
		return nil
	})
	if err != nil {
		t.Fatalf("StartAsync() error = %v", err)
	}
	if !m.IsRunning("work") {
		t.Error("IsRunning() = false while job is active")
	}

	// Same name again must be refused.
	if err := m.StartAsync("work", func(ctx context.Context) error { return nil }); err == nil {
		t.Error("StartAsync() duplicate: want error")
	}

	close(done)
	waitNotRunning(t, m, "work")

	// Finished name can be reused.
	if err := m.StartAsync("work", func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("StartAsync() after finish error = %v", err)
	}
}

func TestManager_Stop(t *testing.T) {
	m := NewManager(nil)
	stopped := make(chan struct{})

	err := m.StartAsync("work", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("StartAsync() error = %v", err)
	}

	if !m.Stop("work") {
		t.Error("Stop() = false for running job")
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe cancellation")
	}
	if m.Stop("work") && m.IsRunning("work") {
		t.Error("job still tracked after stop")
	}

	if m.Stop("never-started") {
		t.Error("Stop() = true for unknown job")
	}
}

func TestManager_StopAll(t *testing.T) {
	m := NewManager(nil)
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		err := m.StartAsync(name, func(ctx context.Context) error {
			defer wg.Done()
			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil {
			t.Fatalf("StartAsync(%s) error = %v", name, err)
		}
	}

	if got := m.Running(); len(got) != 3 {
		t.Fatalf("Running() = %v, want 3 jobs", got)
	}

	m.StopAll()
	wg.Wait()
	for _, name := range []string{"a", "b", "c"} {
		waitNotRunning(t, m, name)
	}
}

func TestManager_Reporter(t *testing.T) {
	var mu sync.Mutex
	var events []string
	m := NewManager(func(msg string) {
		mu.Lock()
		events = append(events, msg)
		mu.Unlock()
	})

	if err := m.StartAsync("ok", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := m.StartAsync("bad", func(ctx context.Context) error { return errors.New("kaput") }); err != nil {
		t.Fatal(err)
	}
	waitNotRunning(t, m, "ok")
	waitNotRunning(t, m, "bad")

	mu.Lock()
	defer mu.Unlock()
	var haveDone, haveError bool
	for _, e := range events {
		if e == "done:ok" {
			haveDone = true
		}
		if strings.HasPrefix(e, "error:bad:") {
			haveError = true
		}
	}
	if !haveDone || !haveError {
		t.Errorf("events = %v, want done:ok and error:bad:*", events)
	}
}

func waitNotRunning(t *testing.T, m *Manager, name string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !m.IsRunning(name) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %q still running", name)
}
