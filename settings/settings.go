// Package settings holds the robot's tunable parameters. A YAML document is
// flattened into dotted keys such as "subsystems.arm.positions.stow", and
// values are read back with typed accessors.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingParameter is matched by a ParameterError for an absent key.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrBadParameter is matched by a ParameterError for a value of the wrong type.
	ErrBadParameter = errors.New("bad parameter")
)

// ParameterError reports a settings lookup failure.
type ParameterError struct {
	Key    string
	Reason string
	kind   error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.kind, e.Key, e.Reason)
}

// Is lets errors.Is match ErrMissingParameter and ErrBadParameter.
func (e *ParameterError) Is(target error) bool {
	return target == e.kind
}

func missing(key string) error {
	return &ParameterError{Key: key, Reason: "not defined", kind: ErrMissingParameter}
}

func bad(key, want string, v any) error {
	return &ParameterError{Key: key, Reason: fmt.Sprintf("want %s, have %T", want, v), kind: ErrBadParameter}
}

// Settings is a flat key/value store. It is safe for concurrent use so the
// diagnostics server can read it while the loop runs.
type Settings struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty store.
func New() *Settings {
	return &Settings{values: make(map[string]any)}
}

// Load reads a YAML settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	return Parse(data)
}

// Parse builds a store from a YAML document. Nested maps become dotted keys;
// lists are kept as values.
func Parse(data []byte) (*Settings, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	s := New()
	flatten("", doc, s.values)
	return s, nil
}

// Reload replaces every value with the contents of the file at path. The
// store is left untouched when the file cannot be read or parsed.
func (s *Settings) Reload(path string) error {
	fresh, err := Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = fresh.values
	return nil
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(key, m, out)
			continue
		}
		out[key] = v
	}
}

// Set stores a value, replacing any existing one.
func (s *Settings) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Has reports whether key is defined.
func (s *Settings) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Get returns the raw value stored at key.
func (s *Settings) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, missing(key)
	}
	return v, nil
}

// Double returns a numeric value as float64. Integers are widened.
func (s *Settings) Double(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, nil
		}
	}
	return 0, bad(key, "number", v)
}

// Int returns an integer value. Floats with no fractional part are accepted.
func (s *Settings) Int(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, bad(key, "integer", v)
}

// Bool returns a boolean value.
func (s *Settings) Bool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, bad(key, "bool", v)
	}
	return b, nil
}

// String returns a string value.
func (s *Settings) String(key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", bad(key, "string", v)
	}
	return str, nil
}

// Keys returns every key with the given prefix, sorted.
func (s *Settings) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MarshalYAML renders the store as a flat map so it can be served as-is.
func (s *Settings) MarshalYAML() (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}
