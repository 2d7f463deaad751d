package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LifecyclePolicy holds the day counts that drive subscription deadlines and
// activation. It can be reloaded at runtime from lifecycle.yml.
type LifecyclePolicy struct {
	PaymentWindowDays    int    `mapstructure:"paymentWindowDays"`
	OverdueGraceDays     int    `mapstructure:"overdueGraceDays"`
	CarrierLagDays       int    `mapstructure:"carrierLagDays"`
	ForwardActivationDay int    `mapstructure:"forwardActivationDay"`
	Timezone             string `mapstructure:"timezone"`

	location *time.Location
}

func DefaultLifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{
		PaymentWindowDays:    10,
		OverdueGraceDays:     3,
		CarrierLagDays:       2,
		ForwardActivationDay: 15,
		Timezone:             "UTC",
		location:             time.UTC,
	}
}

// Location returns the time zone used to derive "today".
func (p LifecyclePolicy) Location() *time.Location {
	if p.location != nil {
		return p.location
	}
	return time.UTC
}

func (p LifecyclePolicy) normalize() (LifecyclePolicy, error) {
	if p.PaymentWindowDays < 0 {
		return p, errors.New("lifecycle.paymentWindowDays cannot be negative")
	}
	if p.OverdueGraceDays < 0 {
		return p, errors.New("lifecycle.overdueGraceDays cannot be negative")
	}
	if p.CarrierLagDays < 0 {
		return p, errors.New("lifecycle.carrierLagDays cannot be negative")
	}
	if p.ForwardActivationDay < 0 || p.ForwardActivationDay > 31 {
		return p, errors.New("lifecycle.forwardActivationDay must be between 0 and 31")
	}
	tz := strings.TrimSpace(p.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return p, fmt.Errorf("lifecycle.timezone: %w", err)
	}
	p.Timezone = tz
	p.location = loc
	return p, nil
}

type LifecyclePolicyHolder struct {
	current atomic.Value // holds LifecyclePolicy
}

// NewStaticLifecyclePolicy wraps a fixed policy, mostly for tests and tools.
func NewStaticLifecyclePolicy(p LifecyclePolicy) (*LifecyclePolicyHolder, error) {
	normalized, err := p.normalize()
	if err != nil {
		return nil, err
	}
	holder := &LifecyclePolicyHolder{}
	holder.current.Store(normalized)
	return holder, nil
}

// NewLifecyclePolicyHolder reads lifecycle.yml (if present) plus environment
// overrides and watches the file for changes.
func NewLifecyclePolicyHolder(log *zap.Logger) (*LifecyclePolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.lifecycle")

	v := viper.New()
	v.SetConfigName("lifecycle")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pressline")
	v.AddConfigPath(".")

	defaults := DefaultLifecyclePolicy()
	v.SetDefault("lifecycle.paymentWindowDays", defaults.PaymentWindowDays)
	v.SetDefault("lifecycle.overdueGraceDays", defaults.OverdueGraceDays)
	v.SetDefault("lifecycle.carrierLagDays", defaults.CarrierLagDays)
	v.SetDefault("lifecycle.forwardActivationDay", defaults.ForwardActivationDay)
	v.SetDefault("lifecycle.timezone", defaults.Timezone)

	bindings := map[string]string{
		"lifecycle.paymentWindowDays":    "PAYMENT_WINDOW_DAYS",
		"lifecycle.overdueGraceDays":     "OVERDUE_GRACE_DAYS",
		"lifecycle.carrierLagDays":       "CARRIER_LAG_DAYS",
		"lifecycle.forwardActivationDay": "FORWARD_ACTIVATION_DAY",
		"lifecycle.timezone":             "APP_TIMEZONE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	policy, err := unmarshalPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &LifecyclePolicyHolder{}
	holder.current.Store(policy)

	if fileFound {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalPolicy(v)
			if err != nil {
				log.Warn("lifecycle policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("lifecycle policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func unmarshalPolicy(v *viper.Viper) (LifecyclePolicy, error) {
	// Unmarshal the whole tree so env-bound leaf keys override file values.
	var root struct {
		Lifecycle LifecyclePolicy `mapstructure:"lifecycle"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return LifecyclePolicy{}, err
	}
	return root.Lifecycle.normalize()
}

func (h *LifecyclePolicyHolder) Get() LifecyclePolicy {
	if h == nil {
		return DefaultLifecyclePolicy()
	}
	policy, ok := h.current.Load().(LifecyclePolicy)
	if !ok {
		return DefaultLifecyclePolicy()
	}
	return policy
}
