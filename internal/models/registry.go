// Package models implements ModelOrchestrator (C4): concurrent
// dispatch of prompts to a configured model pool with per-call
// timeouts, retries, and fallback chains, plus the read-only
// ModelRegistry the fusion engine consults for weights.
package models

import (
	"fmt"

	"github.com/marketoracle/forecast/internal/contracts"
)

// Registry is the read-only model pool loaded once at startup
// (spec §4.4, §6). It is never mutated after NewRegistry returns.
type Registry struct {
	entries map[string]contracts.ModelRegistryEntry
	order   []string // insertion order, for deterministic dispatch logging
}

// NewRegistry builds a Registry from configured entries. Disabled
// models are retained (so GetWeight and fallback lookups still work)
// but excluded from dispatch by the orchestrator.
func NewRegistry(entries []contracts.ModelRegistryEntry) (*Registry, error) {
	r := &Registry{entries: make(map[string]contracts.ModelRegistryEntry, len(entries))}
	for _, e := range entries {
		if _, dup := r.entries[e.ModelID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", e.ModelID)
		}
		r.entries[e.ModelID] = e
		r.order = append(r.order, e.ModelID)
	}
	return r, nil
}

// GetWeight returns the configured base weight for modelID, or 0 if
// the model is unknown.
func (r *Registry) GetWeight(modelID string) float64 {
	e, ok := r.entries[modelID]
	if !ok {
		return 0
	}
	return e.BaseWeight
}

// Enabled returns the model IDs eligible for dispatch, in registry
// order.
func (r *Registry) Enabled() []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.entries[id].Enabled {
			out = append(out, id)
		}
	}
	return out
}

// Get returns the full entry for modelID.
func (r *Registry) Get(modelID string) (contracts.ModelRegistryEntry, bool) {
	e, ok := r.entries[modelID]
	return e, ok
}

// All returns every configured entry, enabled or not, in registry order.
func (r *Registry) All() []contracts.ModelRegistryEntry {
	out := make([]contracts.ModelRegistryEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}
