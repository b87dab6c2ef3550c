package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// IgnoreMatcher decides whether an element selector is excluded from
// grabbing. Patterns use glob syntax against the element's simple selector
// (for example "div#app > svg.icon" or "[data-grab-overlay]").
type IgnoreMatcher struct {
	patterns []glob.Glob
	sources  []string
}

// CompileIgnoreMatcher compiles the pattern list. An invalid pattern fails
// the whole compile so misconfiguration is caught at startup rather than
// silently ignored at match time.
func CompileIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, g)
		m.sources = append(m.sources, p)
	}
	return m, nil
}

// Matches reports whether the selector matches any ignore pattern.
func (m *IgnoreMatcher) Matches(selector string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.patterns {
		if g.Match(selector) {
			return true
		}
	}
	return false
}

// Patterns returns the original pattern strings.
func (m *IgnoreMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.sources...)
}
