package core

import (
	"fmt"
	"math"
)

// DefaultRange applies to currencies without an explicit range.
var DefaultRange = PriceRange{Min: 0, Max: 50}

// PriceRange bounds the simulated price of a currency. Min may be negative.
type PriceRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func (r PriceRange) Validate() error {
	if !finite(r.Min) || !finite(r.Max) {
		return fmt.Errorf("%w: bounds must be finite, got %v", ErrInvalidRange, r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %v greater than max %v", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (r PriceRange) String() string {
	return fmt.Sprintf("[%v, %v]", r.Min, r.Max)
}

// RangeTable maps currency ids to price ranges.
// The zero value resolves every id to DefaultRange.
type RangeTable struct {
	Default *PriceRange
	ByID    map[string]PriceRange
}

// Lookup returns the range configured for id, or the table default.
func (t RangeTable) Lookup(id string) PriceRange {
	if r, ok := t.ByID[id]; ok {
		return r
	}
	if t.Default != nil {
		return *t.Default
	}
	return DefaultRange
}

// Validate checks every range in the table.
func (t RangeTable) Validate() error {
	if t.Default != nil {
		if err := t.Default.Validate(); err != nil {
			return fmt.Errorf("default range: %w", err)
		}
	}
	for id, r := range t.ByID {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("range for %q: %w", id, err)
		}
	}
	return nil
}
