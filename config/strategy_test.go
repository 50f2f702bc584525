package config

import (
	"reflect"
	"sync"

	"github.com/cascadefs/cascade/convert"
)

// memStrategy is a minimal in-memory Strategy used across the package's
// tests: SaveItem/LoadItem/PeekItem operate on a map keyed by path,
// simulating what an on-disk strategy like xmlpersist would persist.
type memStrategy struct {
	mu            sync.Mutex
	stored        map[string]storedValue
	registry      *convert.Registry
	comments      bool
	rejectType    reflect.Type
	rejectName    string
	flushes       int
}

type storedValue struct {
	value       string
	hasValue    bool
	comment     string
	hasComment  bool
}

func newMemStrategy() *memStrategy {
	return &memStrategy{stored: make(map[string]storedValue), registry: convert.NewRegistry(), comments: true}
}

func (s *memStrategy) IsValidConfigurationName(name string) bool { return name != "" }
func (s *memStrategy) IsValidItemName(name string) bool          { return name != "" && name != s.rejectName }
func (s *memStrategy) SupportsType(t reflect.Type) bool {
	if t == s.rejectType {
		return false
	}
	_, ok := s.registry.Get(t)
	return ok
}
func (s *memStrategy) SupportsComments() bool { return s.comments }
func (s *memStrategy) IsAssignable(t reflect.Type, v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v) == t
}
func (s *memStrategy) Converters() *convert.Registry { return s.registry }

func (s *memStrategy) LoadItem(path string, typ reflect.Type) (string, bool, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.stored[path]
	return v.value, v.hasValue, v.comment, v.hasComment, nil
}

func (s *memStrategy) PeekItem(path string, typ reflect.Type) (string, bool, string, bool, error) {
	return s.LoadItem(path, typ)
}

func (s *memStrategy) SaveItem(path string, typ reflect.Type, value string, hasValue bool, comment string, hasComment bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[path] = storedValue{value: value, hasValue: hasValue, comment: comment, hasComment: hasComment}
	return nil
}

func (s *memStrategy) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *memStrategy) put(path, value, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[path] = storedValue{value: value, hasValue: true, comment: comment, hasComment: comment != ""}
}
