package calculatecheckout

import (
	"fmt"
	"time"

	"startup-match-workers/internal/common/config"
	"startup-match-workers/internal/matching"
)

type Config struct {
	Timeout        time.Duration
	UnitPriceCents int64
	Rules          matching.PricingRules
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:        15 * time.Second,
		UnitPriceCents: 500,
		Rules:          matching.DefaultPricingRules(),
	}
}

func NewConfig(appCfg *config.Config) (*Config, error) {
	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg, nil
	}

	if w := config.GetWorkerConfig(appCfg, TaskType); w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	p := appCfg.Pricing
	if p.UnitPriceCents > 0 {
		cfg.UnitPriceCents = p.UnitPriceCents
	}
	if p.BundleDiscountCents > 0 {
		cfg.Rules.BundleDiscountCents = p.BundleDiscountCents
	}
	if p.BundleSize > 0 {
		cfg.Rules.BundleSize = p.BundleSize
	}
	if p.MaxSelection > 0 {
		cfg.Rules.MaxSelection = p.MaxSelection
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.UnitPriceCents <= 0 {
		return fmt.Errorf("unit_price_cents must be positive")
	}
	if c.Rules.MaxSelection <= 0 || c.Rules.MaxSelection > matching.MaxMatches {
		return fmt.Errorf("max_selection must be between 1 and %d", matching.MaxMatches)
	}
	return nil
}
