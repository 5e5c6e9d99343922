// Package connectivity tracks last-known reachability of the backend.
//
// State is written by a single notifier (usually a Prober) and read by any
// number of concurrent request flows. Reads are a single atomic load.
package connectivity

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is delivered to subscribers when the state flips.
type Event struct {
	Online bool
	At     time.Time
}

// State is a process-wide online/offline flag with change subscriptions.
type State struct {
	online atomic.Bool

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int

	onChange func(online, changed bool)
}

// NewState returns a State with the given initial value.
func NewState(online bool) *State {
	s := &State{subs: make(map[int]chan Event)}
	s.online.Store(online)
	return s
}

// Online reports the last-known reachability.
func (s *State) Online() bool {
	return s.online.Load()
}

// Set records a reachability observation and notifies subscribers if it
// differs from the previous value. It reports whether the value changed.
func (s *State) Set(online bool) bool {
	changed := s.online.Swap(online) != online
	if s.onChange != nil {
		s.onChange(online, changed)
	}
	if !changed {
		return false
	}

	ev := Event{Online: online, At: time.Now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		deliverLatest(ch, ev)
	}
	return true
}

// Subscribe returns a channel that receives state transitions. Each
// subscriber holds at most one undelivered event: a newer event replaces
// an unread older one, so a slow reader never blocks Set.
func (s *State) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// OnChange installs a hook called on every Set; used for metrics. It must be
// called before the State is shared.
func (s *State) OnChange(fn func(online, changed bool)) {
	s.onChange = fn
}

func deliverLatest(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
