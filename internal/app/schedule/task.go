package schedule

import (
	"sync"
	"time"
)

// Task is a handle on a delayed or repeating callback. Cancel may be called
// any number of times, from any goroutine, including from the callback.
type Task struct {
	once sync.Once
	done chan struct{}
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Cancel stops future runs. A run already in progress is not interrupted.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.done) })
}

func (t *Task) Cancelled() bool {
	if t == nil {
		return true
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed once the task is cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// After runs fn once after d unless cancelled first.
func After(d time.Duration, fn func()) *Task {
	t := newTask()
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-t.done:
			return
		case <-timer.C:
		}
		if t.Cancelled() {
			return
		}
		t.Cancel()
		fn()
	}()
	return t
}

// Every runs fn each interval until cancelled. The interval is read again
// after every run so callers can stretch or shrink it.
func Every(interval func() time.Duration, fn func()) *Task {
	t := newTask()
	go func() {
		for {
			timer := time.NewTimer(interval())
			select {
			case <-t.done:
				timer.Stop()
				return
			case <-timer.C:
			}
			if t.Cancelled() {
				return
			}
			fn()
		}
	}()
	return t
}

// EveryFixed is Every with a constant interval.
func EveryFixed(d time.Duration, fn func()) *Task {
	return Every(func() time.Duration { return d }, fn)
}

// Group owns a set of named tasks. Replacing a name cancels the previous task
// before the new one is stored.
type Group struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewGroup() *Group {
	return &Group{tasks: map[string]*Task{}}
}

func (g *Group) Set(name string, t *Task) {
	g.mu.Lock()
	prev := g.tasks[name]
	g.tasks[name] = t
	g.mu.Unlock()
	prev.Cancel()
}

func (g *Group) Cancel(name string) {
	g.mu.Lock()
	t := g.tasks[name]
	delete(g.tasks, name)
	g.mu.Unlock()
	t.Cancel()
}

func (g *Group) Active(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[name]
	return ok && !t.Cancelled()
}

// CancelAll cancels every task and empties the group.
func (g *Group) CancelAll() {
	g.mu.Lock()
	tasks := g.tasks
	g.tasks = map[string]*Task{}
	g.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}
