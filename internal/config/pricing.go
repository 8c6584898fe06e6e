package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"cashbox/internal/core"
)

// DefaultConfirmStrategy is used when neither CONFIRM_STRATEGY nor the
// pricing file names one.
const DefaultConfirmStrategy = "single"

// Pricing is the content of PRICING_FILE: price ranges per currency id and
// the confirmation dialog settings.
type Pricing struct {
	Default      *core.PriceRange           `yaml:"default"`
	Ranges       map[string]core.PriceRange `yaml:"ranges"`
	Confirmation Confirmation               `yaml:"confirmation"`
}

type Confirmation struct {
	Strategy string   `yaml:"strategy"`
	Messages []string `yaml:"messages"`
}

// LoadPricing reads and validates a pricing file. A missing file yields the
// built-in defaults.
func LoadPricing(path string) (*Pricing, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Pricing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var p Pricing
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pricing file %s: %w", path, err)
	}
	if err := p.RangeTable().Validate(); err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return &p, nil
}

func (p *Pricing) RangeTable() core.RangeTable {
	return core.RangeTable{Default: p.Default, ByID: p.Ranges}
}

// StrategyName picks the confirmation strategy: override first, then the
// pricing file, then DefaultConfirmStrategy.
func (p *Pricing) StrategyName(override string) string {
	if override != "" {
		return override
	}
	if p.Confirmation.Strategy != "" {
		return p.Confirmation.Strategy
	}
	return DefaultConfirmStrategy
}
