// Package flags provides feature flag support for opt-in dispatcher behavior.
// Flags are read-only after initialization and unknown flags read as disabled.
package flags

import (
	"maps"
	"slices"
	"strings"

	"github.com/zjrosen/devscripts/internal/log"
)

const (
	// FlagSerializeRuns makes the dispatcher run concurrent dispatches of the
	// same script name one at a time. Different names never wait on each other.
	FlagSerializeRuns = "serialize-runs"

	// FlagCompactTraces drops the file:line suffix from failure trace frames.
	FlagCompactTraces = "compact-traces"
)

var known = []string{FlagCompactTraces, FlagSerializeRuns}

// Known returns the sorted names of all flags devscripts reads.
func Known() []string {
	return slices.Clone(known)
}

// IsKnown reports whether name is a flag devscripts reads.
func IsKnown(name string) bool {
	return slices.Contains(known, strings.TrimSpace(name))
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map.
// If flags is nil, an empty registry is created (all flags disabled).
func New(flags map[string]bool) *Registry {
	copied := make(map[string]bool, len(flags))
	maps.Copy(copied, flags)
	r := &Registry{flags: copied}
	for name := range copied {
		if !IsKnown(name) {
			log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
		}
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(copied), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Nil-safe: a nil registry reports every flag as disabled.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of all flags (for debugging/logging).
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
