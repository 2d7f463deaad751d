package reconciler

import (
	"strings"
	"time"

	"github.com/smallbiznis/pressline/internal/config"
)

// Config controls how often the reconciler runs and how much it does per pass.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	// Cron, when set, replaces the fixed interval with a cron schedule.
	Cron            string
	PassTimeout     time.Duration
	BatchSize       int
	AutoActivateDue bool
	ErrorBuffer     int
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: 24 * time.Hour,
		PassTimeout: 5 * time.Minute,
		BatchSize:   200,
		ErrorBuffer: 64,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.PassTimeout <= 0 {
		c.PassTimeout = defaults.PassTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.ErrorBuffer <= 0 {
		c.ErrorBuffer = defaults.ErrorBuffer
	}
	c.Cron = strings.TrimSpace(c.Cron)
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:         cfg.Reconcile.Enabled,
		RunInterval:     cfg.Reconcile.Interval,
		Cron:            cfg.Reconcile.Cron,
		AutoActivateDue: cfg.Reconcile.AutoActivateDue,
	}.withDefaults()
}
