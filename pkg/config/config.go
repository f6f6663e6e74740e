package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store is a flat key→value configuration store with typed accessors.
// Every threshold used by the pipeline is read through a Store so that
// components never hard-code tunables.
type Store struct {
	values map[string]string
}

// Load reads configuration from the environment, after loading a .env file
// from the usual locations if one exists.
func Load() (*Store, error) {
	loadEnvFile()

	values := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			values[kv[:i]] = kv[i+1:]
		}
	}

	s := &Store{values: values}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return s, nil
}

// FromMap builds a Store from an explicit map. Used by tests and by callers
// that want a fixed configuration snapshot.
func FromMap(values map[string]string) *Store {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Store{values: copied}
}

// validate checks the values that have no usable default.
func (s *Store) validate() error {
	env := s.String("ENV", "development")
	switch env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production (got %q)", env)
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// String returns the value for key, or defaultValue when unset or empty.
func (s *Store) String(key, defaultValue string) string {
	if v, ok := s.values[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

// Bool returns the value for key parsed as a bool.
func (s *Store) Bool(key string, defaultValue bool) bool {
	v, ok := s.values[key]
	if !ok || v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Int returns the value for key parsed as an int.
func (s *Store) Int(key string, defaultValue int) int {
	v, ok := s.values[key]
	if !ok || v == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Int64 returns the value for key parsed as an int64.
func (s *Store) Int64(key string, defaultValue int64) int64 {
	v, ok := s.values[key]
	if !ok || v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Float returns the value for key parsed as a float64.
func (s *Store) Float(key string, defaultValue float64) float64 {
	v, ok := s.values[key]
	if !ok || v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Path returns the value for key cleaned as a filesystem path.
func (s *Store) Path(key, defaultValue string) string {
	return filepath.Clean(s.String(key, defaultValue))
}

// Strings returns the value for key split on commas, with whitespace trimmed
// and empty entries dropped.
func (s *Store) Strings(key string, defaultValue []string) []string {
	v, ok := s.values[key]
	if !ok || v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Env returns the runtime environment name.
func (s *Store) Env() string {
	return s.String("ENV", "development")
}
