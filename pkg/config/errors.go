package config

import (
	"slices"
	"strings"
)

// Violation is a single configuration key that failed validation
type Violation struct {
	Key    string
	Reason string
}

func (v Violation) String() string {
	return v.Key + " " + v.Reason
}

// ConfigurationError is returned by Load when the environment does not satisfy
// the schema. The process must not serve traffic after receiving one.
type ConfigurationError struct {
	Violations []Violation
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Has reports whether key is among the violations
func (e *ConfigurationError) Has(key string) bool {
	for _, v := range e.Violations {
		if v.Key == key {
			return true
		}
	}
	return false
}

type violationList struct {
	items []Violation
}

func (l *violationList) add(key, reason string) {
	l.items = append(l.items, Violation{Key: key, Reason: reason})
}

func (l *violationList) has(key string) bool {
	for _, v := range l.items {
		if v.Key == key {
			return true
		}
	}
	return false
}

func (l *violationList) empty() bool {
	return len(l.items) == 0
}

// err returns the violations sorted by key for stable output
func (l *violationList) err() *ConfigurationError {
	items := slices.Clone(l.items)
	slices.SortStableFunc(items, func(a, b Violation) int {
		return strings.Compare(a.Key, b.Key)
	})
	return &ConfigurationError{Violations: items}
}
