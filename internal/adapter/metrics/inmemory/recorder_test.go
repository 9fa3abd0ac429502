package inmemory

import "testing"

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordFrame("protocol")
	r.RecordFrame("protocol")
	r.RecordFrame("system")
	r.RecordCommand("m")
	r.RecordDisconnect("timeout")
	r.RecordBattle()
	r.RecordCatchAttempt()

	s := r.Snapshot()
	if s.FramesTotal != 3 {
		t.Fatalf("expected 3 frames, got %d", s.FramesTotal)
	}
	if s.FramesByKind["protocol"] != 2 {
		t.Fatalf("expected 2 protocol frames, got %d", s.FramesByKind["protocol"])
	}
	if s.CommandsTotal != 1 || s.CommandsByName["m"] != 1 {
		t.Fatalf("unexpected commands %+v", s.CommandsByName)
	}
	if s.Disconnects["timeout"] != 1 {
		t.Fatalf("expected one timeout disconnect")
	}
	if s.Battles != 1 || s.CatchAttempts != 1 {
		t.Fatalf("unexpected battle counters %+v", s)
	}

	s.FramesByKind["protocol"] = 99
	if r.Snapshot().FramesByKind["protocol"] != 2 {
		t.Fatalf("snapshot must not alias recorder state")
	}
}
