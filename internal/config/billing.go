package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig holds the tunables of the billing and subscription jobs.
type BillingConfig struct {
	DefaultDueDay    int    `mapstructure:"defaultDueDay"`
	FreePlanName     string `mapstructure:"freePlanName"`
	FreePlanMonths   int    `mapstructure:"freePlanDuration"`
	PDCPaymentMethod string `mapstructure:"pdcPaymentMethod"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultDueDay:    7,
		FreePlanName:     "Free Plan",
		FreePlanMonths:   12,
		PDCPaymentMethod: "pdc",
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.billing")

	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/rentflow/config")
	v.AddConfigPath("/etc/rentflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.defaultDueDay", defaults.DefaultDueDay)
	v.SetDefault("billing.freePlanName", defaults.FreePlanName)
	v.SetDefault("billing.freePlanDuration", defaults.FreePlanMonths)
	v.SetDefault("billing.pdcPaymentMethod", defaults.PDCPaymentMethod)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed configuration without file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DefaultDueDay < 1 || cfg.DefaultDueDay > 31 {
		return errors.New("billing.defaultDueDay must be between 1 and 31")
	}
	if strings.TrimSpace(cfg.FreePlanName) == "" {
		return errors.New("billing.freePlanName cannot be empty")
	}
	if cfg.FreePlanMonths <= 0 {
		return errors.New("billing.freePlanDuration must be positive")
	}
	if strings.TrimSpace(cfg.PDCPaymentMethod) == "" {
		return errors.New("billing.pdcPaymentMethod cannot be empty")
	}
	return nil
}
