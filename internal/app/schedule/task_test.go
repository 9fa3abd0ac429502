package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfterRunsOnce(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	task := After(5*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task did not fire")
	}
	if !task.Cancelled() {
		t.Fatalf("fired one-shot task should report cancelled")
	}
	task.Cancel()
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestAfterCancelledNeverFires(t *testing.T) {
	var calls int32
	task := After(20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	task.Cancel()
	task.Cancel()
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("cancelled task fired")
	}
}

func TestEveryRepeatsUntilCancelled(t *testing.T) {
	var calls int32
	task := EveryFixed(2*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Cancel()
	time.Sleep(10 * time.Millisecond)
	seen := atomic.LoadInt32(&calls)
	if seen < 3 {
		t.Fatalf("expected at least 3 runs, got %d", seen)
	}
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&calls) != seen {
		t.Fatalf("task kept running after cancel")
	}
}

func TestCancelFromInsideCallback(t *testing.T) {
	var task *Task
	var calls int32
	ready := make(chan struct{})
	task = EveryFixed(time.Millisecond, func() {
		<-ready
		atomic.AddInt32(&calls, 1)
		task.Cancel()
	})
	close(ready)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single run, got %d", calls)
	}
}

func TestGroupReplaceCancelsPrevious(t *testing.T) {
	g := NewGroup()
	first := After(time.Hour, func() {})
	g.Set("position", first)
	second := After(time.Hour, func() {})
	g.Set("position", second)
	if !first.Cancelled() {
		t.Fatalf("replaced task must be cancelled")
	}
	if !g.Active("position") {
		t.Fatalf("expected replacement to be active")
	}
	g.CancelAll()
	if !second.Cancelled() || g.Active("position") {
		t.Fatalf("CancelAll left a live task")
	}
}
