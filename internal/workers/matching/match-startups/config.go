package matchstartups

import (
	"fmt"
	"time"

	"startup-match-workers/internal/common/config"
	"startup-match-workers/internal/matching"
)

type Config struct {
	Timeout  time.Duration
	LockTTL  time.Duration
	LeakMode matching.LeakMode
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:  4 * time.Minute,
		LockTTL:  5 * time.Minute,
		LeakMode: matching.LeakModeFlag,
	}
}

// NewConfig reads the worker timeout and matching knobs from the application config.
func NewConfig(appCfg *config.Config) (*Config, error) {
	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg, nil
	}

	if w := config.GetWorkerConfig(appCfg, TaskType); w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	if appCfg.Matching.LockTTL > 0 {
		cfg.LockTTL = config.GetDuration(appCfg.Matching.LockTTL)
	}
	mode, err := matching.ParseLeakMode(appCfg.Matching.NameLeakMode)
	if err != nil {
		return nil, err
	}
	cfg.LeakMode = mode

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive")
	}
	// A lock that expires mid-run would let a second run in on the same transaction.
	if c.LockTTL < c.Timeout {
		return fmt.Errorf("lock_ttl (%s) must not be shorter than the job timeout (%s)", c.LockTTL, c.Timeout)
	}
	return nil
}
