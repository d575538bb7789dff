package credentials

import (
	"fmt"
	"os"
	"strings"
)

// Set is an append-only collection of named credentials. Values present in
// the persisted store are never overwritten; only gaps are filled.
type Set struct {
	names  []string
	values map[string]string
}

// NewSet returns an empty credential set.
func NewSet() *Set {
	return &Set{values: make(map[string]string)}
}

// Get returns the value for a logical name.
func (s *Set) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// MustGet returns the value for a logical name, or an empty string if unset.
func (s *Set) MustGet(name string) string {
	return s.values[name]
}

// Names returns the credential names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// put records a value, preserving first-insertion order.
func (s *Set) put(name, value string) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// Ensure fills a gap: if name is unset, gen produces its value.
// An already-set name is left untouched.
func (s *Set) Ensure(name string, gen func() (string, error)) error {
	if _, ok := s.values[name]; ok {
		return nil
	}
	v, err := gen()
	if err != nil {
		return fmt.Errorf("failed to generate credential %s: %w", name, err)
	}
	s.put(name, v)
	return nil
}

// Load reads a persisted key=value store. A missing file yields an empty set.
func Load(path string) (*Set, error) {
	s := NewSet()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed credential store line: %q", line)
		}
		s.put(key, value)
	}

	return s, nil
}

// Write persists the set as a key=value file with restricted permissions.
func (s *Set) Write(path string) error {
	var b strings.Builder
	for _, name := range s.names {
		fmt.Fprintf(&b, "%s=%s\n", name, s.values[name])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return nil
}

// Export publishes every credential into the process environment.
func (s *Set) Export() error {
	for _, name := range s.names {
		if err := os.Setenv(name, s.values[name]); err != nil {
			return fmt.Errorf("failed to export credential %s: %w", name, err)
		}
	}
	return nil
}
