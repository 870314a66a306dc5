// Package theme holds the process-wide colour scheme read by the renderers.
package theme

import (
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

// Palette colours of a theme.
type Palette struct {
	Background  lipgloss.Color
	Foreground  lipgloss.Color
	Text        lipgloss.Color
	Placeholder lipgloss.Color
	Loader      lipgloss.Color
	Error       lipgloss.Color
	Warning     lipgloss.Color
	Primary     lipgloss.Color
}

var (
	light = Palette{
		Background:  "#e0e0e0",
		Foreground:  "#f2f2f2",
		Text:        "#0e062d",
		Placeholder: "#b3b3b3",
		Loader:      "#a6a6a6",
		Error:       "#c62828",
		Warning:     "#FF6F00",
		Primary:     "#1c60ff",
	}
	dark = Palette{
		Background:  "#212121",
		Foreground:  "#333333",
		Text:        "#F1F9D2",
		Placeholder: "#666666",
		Loader:      "#595959",
		Error:       "#c62828",
		Warning:     "#FF6F00",
		Primary:     "#1c60ff",
	}
)

// PaletteOf returns the palette of t.
func PaletteOf(t domain.Theme) Palette {
	if t == domain.ThemeDark {
		return dark
	}
	return light
}

// Source persisted theme preference.
type Source interface {
	Theme() (domain.Theme, error)
	SetTheme(domain.Theme) error
}

// Manager current theme. It is light until Init loads the stored preference.
type Manager struct {
	mu      sync.RWMutex
	current domain.Theme
	source  Source
}

// NewManager creates a manager backed by source.
func NewManager(source Source) *Manager {
	return &Manager{current: domain.ThemeLight, source: source}
}

// Init loads the persisted theme.
func (m *Manager) Init() error {
	if m.source == nil {
		return nil
	}
	t, err := m.source.Theme()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
	return nil
}

// Set persists and applies t.
func (m *Manager) Set(t domain.Theme) error {
	if m.source != nil {
		if err := m.source.SetTheme(t); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
	return nil
}

// Toggle switches between light and dark.
func (m *Manager) Toggle() (domain.Theme, error) {
	next := m.Current().Toggle()
	return next, m.Set(next)
}

// Current returns the active theme.
func (m *Manager) Current() domain.Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Palette returns the colours of the active theme.
func (m *Manager) Palette() Palette {
	return PaletteOf(m.Current())
}

// Styles lipgloss styles derived from a palette.
type Styles struct {
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// Styles builds renderer styles for the active theme.
func (m *Manager) Styles() Styles {
	p := m.Palette()
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		Text:    lipgloss.NewStyle().Foreground(p.Text),
		Muted:   lipgloss.NewStyle().Foreground(p.Placeholder),
		Error:   lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
	}
}
