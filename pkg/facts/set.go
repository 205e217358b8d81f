package facts

import (
	"fmt"
	"sort"
	"sync"
)

// entry memoizes a single fact value.
type entry struct {
	def   Definition
	once  sync.Once
	value string
}

func (e *entry) resolve() string {
	e.once.Do(func() {
		e.value = e.def.Value()
	})
	return e.value
}

// Set is a collection of registered facts. It is safe for concurrent use.
type Set struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewSet creates an empty fact set.
func NewSet() *Set {
	return &Set{
		entries: make(map[string]*entry),
	}
}

// Add registers definitions. Either all of them are added or none are.
func (s *Set) Add(defs ...Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
		}
		if def.Value == nil {
			return fmt.Errorf("%w: %s has no value function", ErrInvalidDefinition, def.Name)
		}
		if _, ok := s.entries[def.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFact, def.Name)
		}
		if _, ok := seen[def.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFact, def.Name)
		}
		seen[def.Name] = struct{}{}
	}

	for _, def := range defs {
		s.entries[def.Name] = &entry{def: def}
	}
	return nil
}

// Len returns the number of registered facts.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Has reports whether a fact is registered.
func (s *Set) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[name]
	return ok
}

// Names returns the registered fact names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value returns the value of a fact, computing it on first use.
func (s *Set) Value(name string) (string, bool) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return e.resolve(), true
}

// Resolve computes every registered fact.
func (s *Set) Resolve() map[string]string {
	s.mu.RLock()
	entries := make(map[string]*entry, len(s.entries))
	for name, e := range s.entries {
		entries[name] = e
	}
	s.mu.RUnlock()

	out := make(map[string]string, len(entries))
	for name, e := range entries {
		out[name] = e.resolve()
	}
	return out
}

// Select computes the named facts. Unknown names are left out of the result.
func (s *Set) Select(names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := s.Value(name); ok {
			out[name] = v
		}
	}
	return out
}
