// Package form models the twelve-month input form and reads it into a
// core.MonthlySeries.
//
// Fields stands in for the page's text inputs: each has a text value and an
// "invalid" presentation flag. A Fields implementation may hold only some of
// the 24 ids; readers skip the missing ones.
package form

import (
	"errors"
	"sort"
	"sync"

	"bucks2bar/internal/core"
)

var ErrUnknownField = errors.New("unknown field")

// Field is one text input.
type Field interface {
	Value() string
	SetValue(v string)
	Invalid() bool
	SetInvalid(invalid bool)
}

// Fields looks up inputs by id ("income-01" ... "expense-12").
type Fields interface {
	Field(id string) (Field, bool)
}

// Store is an in-memory Fields implementation safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	fields map[string]*input
}

type input struct {
	mu      *sync.RWMutex
	value   string
	invalid bool
}

// NewStore creates a store holding all 24 budget fields.
func NewStore() *Store {
	return NewStoreWith(core.FieldIDs()...)
}

// NewStoreWith creates a store holding only the given ids.
func NewStoreWith(ids ...string) *Store {
	s := &Store{fields: make(map[string]*input, len(ids))}
	for _, id := range ids {
		s.fields[id] = &input{mu: &s.mu}
	}
	return s
}

// Field implements Fields.
func (s *Store) Field(id string) (Field, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[id]
	if !ok {
		return nil, false
	}
	return f, true
}

// Set writes the value of an existing field.
func (s *Store) Set(id, value string) error {
	f, ok := s.Field(id)
	if !ok {
		return ErrUnknownField
	}
	f.SetValue(value)
	return nil
}

// Values returns a copy of every field value keyed by id.
func (s *Store) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.fields))
	for id, f := range s.fields {
		out[id] = f.value
	}
	return out
}

// InvalidIDs returns the sorted ids currently flagged invalid.
func (s *Store) InvalidIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, f := range s.fields {
		if f.invalid {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (f *input) Value() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

func (f *input) SetValue(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

func (f *input) Invalid() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.invalid
}

func (f *input) SetInvalid(invalid bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid = invalid
}
