package filtermatches

import (
	"time"

	"startup-match-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func NewConfig(appCfg *config.Config) *Config {
	cfg := &Config{Timeout: 10 * time.Second}
	if appCfg != nil {
		if w := config.GetWorkerConfig(appCfg, TaskType); w.Timeout > 0 {
			cfg.Timeout = config.GetDuration(w.Timeout)
		}
	}
	return cfg
}
