// Package prefs persists client-side preferences across sessions.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

const (
	defaultStateDir = "./wal/prefs"
	fileName        = "preferences.json"

	// KeyTheme persisted colour scheme, "light" or "dark".
	KeyTheme = "loopring-pay-theme"
	// KeyFiat persisted valuation currency, JSON encoded.
	KeyFiat = "loopring-pay-fiat"
)

// Store key/value preference file written atomically via temp file.
type Store struct {
	path string
	mu   sync.Mutex
}

func getStateDir(dir string) string {
	if dir != "" {
		return dir
	}
	if stateDir := os.Getenv("L2PAY_STATE_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates a preference store under dir.
func NewStore(dir string) (*Store, error) {
	stateDir := getStateDir(dir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create preferences dir")
	}

	return &Store{path: filepath.Join(stateDir, fileName)}, nil
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Theme returns the stored theme, light when unset or invalid.
func (s *Store) Theme() (domain.Theme, error) {
	v, ok, err := s.Get(KeyTheme)
	if err != nil {
		return domain.ThemeLight, err
	}
	theme := domain.Theme(v)
	if !ok || !theme.IsValid() {
		return domain.ThemeLight, nil
	}
	return theme, nil
}

// SetTheme persists the theme.
func (s *Store) SetTheme(theme domain.Theme) error {
	if !theme.IsValid() {
		return errors.Errorf("invalid theme %q", theme)
	}
	return s.Set(KeyTheme, theme.String())
}

// Fiat returns the stored fiat, or the first supported one.
func (s *Store) Fiat() (domain.Fiat, error) {
	v, ok, err := s.Get(KeyFiat)
	if err != nil || !ok {
		return domain.DefaultFiat(), err
	}

	var fiat domain.Fiat
	if err := json.Unmarshal([]byte(v), &fiat); err != nil {
		return domain.DefaultFiat(), nil
	}
	if known, ok := domain.FiatByName(fiat.Name); ok {
		return known, nil
	}
	return domain.DefaultFiat(), nil
}

// SetFiat persists the fiat as JSON.
func (s *Store) SetFiat(fiat domain.Fiat) error {
	payload, err := json.Marshal(fiat)
	if err != nil {
		return errors.Wrap(err, "encode fiat")
	}
	return s.Set(KeyFiat, string(payload))
}

func (s *Store) load() (map[string]string, error) {
	values := make(map[string]string)

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, errors.Wrap(err, "read preferences")
	}
	if len(payload) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, errors.Wrap(err, "decode preferences")
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	payload, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write preferences temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist preferences")
	}

	return nil
}
