package game

import "sync"

// State is the single owner of the Player snapshot. Every read and write from
// the dispatch path, the bot loop and the control API goes through its lock.
type State struct {
	mu sync.RWMutex
	p  Player
}

func NewState() *State {
	return &State{p: NewPlayer()}
}

// Update runs fn with exclusive access.
func (s *State) Update(fn func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.p)
}

// View runs fn with shared access. fn must not mutate p.
func (s *State) View(fn func(p *Player)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.p)
}

// Snapshot returns a deep copy safe to hand out.
func (s *State) Snapshot() Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.Clone()
}

// Reset replaces the snapshot with an empty player.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = NewPlayer()
}
