package inmemory

import (
	"sync"

	"planetbot/internal/app/ports"
)

type Snapshot struct {
	FramesTotal    uint64            `json:"frames_total"`
	FramesByKind   map[string]uint64 `json:"frames_by_kind"`
	CommandsTotal  uint64            `json:"commands_total"`
	CommandsByName map[string]uint64 `json:"commands_by_name"`
	Disconnects    map[string]uint64 `json:"disconnects"`
	Battles        uint64            `json:"battles"`
	CatchAttempts  uint64            `json:"catch_attempts"`
}

type Recorder struct {
	mu          sync.Mutex
	frames      map[string]uint64
	commands    map[string]uint64
	disconnects map[string]uint64
	battles     uint64
	catches     uint64
}

var _ ports.SessionMetrics = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{
		frames:      map[string]uint64{},
		commands:    map[string]uint64{},
		disconnects: map[string]uint64{},
	}
}

func (r *Recorder) RecordFrame(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[kind]++
}

func (r *Recorder) RecordCommand(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name]++
}

func (r *Recorder) RecordDisconnect(cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects[cause]++
}

func (r *Recorder) RecordBattle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.battles++
}

func (r *Recorder) RecordCatchAttempt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catches++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		FramesByKind:   copyCounts(r.frames),
		CommandsByName: copyCounts(r.commands),
		Disconnects:    copyCounts(r.disconnects),
		Battles:        r.battles,
		CatchAttempts:  r.catches,
	}
	for _, v := range r.frames {
		out.FramesTotal += v
	}
	for _, v := range r.commands {
		out.CommandsTotal += v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
