package emulator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
)

// Store is an in-memory JSON tree addressed by slash-separated paths.
// Values are kept as nested map[string]any; arrays are stored as maps with
// index keys and rebuilt on read, the way the real database does.
type Store struct {
	mu   sync.RWMutex
	root any
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// SplitPath turns "a/b/c" into its segments. Empty and blank segments are
// dropped.
func SplitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// Get returns a copy of the value at path, or nil when nothing is stored.
func (s *Store) Get(path []string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.root
	for _, seg := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return rtdb.Normalize(node)
}

// Set replaces everything at and beneath path with v. A nil v deletes.
func (s *Store) Set(path []string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = setAt(s.root, path, toTree(v))
}

// ErrEmptyKey is returned by Update when a child key names no path segment.
var ErrEmptyKey = errors.New("empty child key")

// Update writes each child of children beneath path, leaving siblings
// untouched. Child keys may themselves be paths. Nothing is written when
// any key is empty.
func (s *Store) Update(path []string, children map[string]any) error {
	for key := range children {
		if len(SplitPath(key)) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyKey, key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, v := range children {
		full := append(append([]string{}, path...), SplitPath(key)...)
		s.root = setAt(s.root, full, toTree(v))
	}
	return nil
}

// Delete removes the value at path.
func (s *Store) Delete(path []string) {
	s.Set(path, nil)
}

func setAt(node any, path []string, v any) any {
	if len(path) == 0 {
		return v
	}

	m, ok := node.(map[string]any)
	if !ok {
		if v == nil {
			return node
		}
		m = make(map[string]any)
	}

	child := setAt(m[path[0]], path[1:], v)
	if child == nil {
		delete(m, path[0])
	} else {
		m[path[0]] = child
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

// toTree converts a decoded JSON value into the stored form: arrays
// become index-keyed maps, nulls and empty containers disappear.
func toTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if c := toTree(child); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make(map[string]any, len(t))
		for i, child := range t {
			if c := toTree(child); c != nil {
				out[strconv.Itoa(i)] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}
