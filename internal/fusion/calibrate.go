package fusion

import "github.com/marketoracle/forecast/internal/contracts"

// Calibrator is a bounded, monotonic, deterministic correction
// f: [0,100] -> [0,100] applied to ModelOnlyProb before blending
// (spec §4.5 step 7). The function set is empty in the observed
// source (spec §9's second open question); identity is registered as
// the only default so the interface stays fully pluggable per
// category without guessing at a calibration curve that was never
// specified.
type Calibrator func(x float64) float64

func identity(x float64) float64 { return x }

// CalibratorRegistry maps Category to its Calibrator, defaulting every
// category to identity unless explicitly overridden.
type CalibratorRegistry struct {
	byCategory map[contracts.Category]Calibrator
}

// NewCalibratorRegistry builds a registry with identity as the
// default for every category. Callers may register category-specific
// calibrators with Register.
func NewCalibratorRegistry() *CalibratorRegistry {
	return &CalibratorRegistry{byCategory: make(map[contracts.Category]Calibrator)}
}

// Register installs a calibrator for a specific category.
func (r *CalibratorRegistry) Register(cat contracts.Category, fn Calibrator) {
	r.byCategory[cat] = fn
}

// For returns the calibrator for cat, or identity if none is registered.
func (r *CalibratorRegistry) For(cat contracts.Category) Calibrator {
	if fn, ok := r.byCategory[cat]; ok {
		return fn
	}
	return identity
}
