package session

import (
	"context"
	"fmt"
	"sync"
)

// Selector holds one Coordinator per engine and routes user actions to the
// selected one.
type Selector struct {
	mu       sync.Mutex
	order    []string
	byEngine map[string]*Coordinator
	selected string
}

// NewSelector creates a Selector over coordinators with selected active.
func NewSelector(selected string, coordinators ...*Coordinator) (*Selector, error) {
	s := &Selector{byEngine: make(map[string]*Coordinator)}
	for _, c := range coordinators {
		if _, dup := s.byEngine[c.Engine()]; dup {
			return nil, fmt.Errorf("session: duplicate engine %q", c.Engine())
		}
		s.byEngine[c.Engine()] = c
		s.order = append(s.order, c.Engine())
	}
	if _, ok := s.byEngine[selected]; !ok {
		return nil, fmt.Errorf("session: no coordinator for engine %q", selected)
	}
	s.selected = selected
	return s, nil
}

// Selected returns the selected engine name.
func (s *Selector) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Current returns the selected coordinator.
func (s *Selector) Current() *Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byEngine[s.selected]
}

// Engines returns engine names in registration order.
func (s *Selector) Engines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Toggle stops the selected coordinator if it has a live session and
// starts one otherwise.
func (s *Selector) Toggle(ctx context.Context) error {
	c := s.Current()
	if c.State() != StateIdle {
		c.Stop()
		return nil
	}
	return c.Start(ctx)
}

// Select switches to engine, stopping the selected coordinator first if it
// is recording.
func (s *Selector) Select(engine string) error {
	s.mu.Lock()
	next, ok := s.byEngine[engine]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session: no coordinator for engine %q", engine)
	}
	prev := s.byEngine[s.selected]
	s.mu.Unlock()

	if prev != next {
		prev.Stop()
	}

	s.mu.Lock()
	s.selected = engine
	s.mu.Unlock()
	return nil
}

// Next selects the engine after the current one, wrapping around, and
// returns its name.
func (s *Selector) Next() (string, error) {
	s.mu.Lock()
	idx := 0
	for i, name := range s.order {
		if name == s.selected {
			idx = i
			break
		}
	}
	engine := s.order[(idx+1)%len(s.order)]
	s.mu.Unlock()

	return engine, s.Select(engine)
}

// StopAll stops every coordinator.
func (s *Selector) StopAll() {
	s.mu.Lock()
	all := make([]*Coordinator, 0, len(s.order))
	for _, name := range s.order {
		all = append(all, s.byEngine[name])
	}
	s.mu.Unlock()

	for _, c := range all {
		c.Stop()
	}
}
