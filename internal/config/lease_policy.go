package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LeasePolicy carries the default financial terms applied when a renewed
// lease is cloned from an agreement with missing values.
type LeasePolicy struct {
	DepositMonths   int     `mapstructure:"depositMonths"`
	AdvanceMonths   int     `mapstructure:"advanceMonths"`
	RentDueDay      int     `mapstructure:"rentDueDay"`
	GracePeriodDays int     `mapstructure:"gracePeriodDays"`
	PenaltyPercent  float64 `mapstructure:"penaltyPercent"`
}

func DefaultLeasePolicy() LeasePolicy {
	return LeasePolicy{
		DepositMonths:   1,
		AdvanceMonths:   1,
		RentDueDay:      1,
		GracePeriodDays: 5,
		PenaltyPercent:  3,
	}
}

// LeasePolicyHolder exposes the current policy and hot-reloads it when the
// backing file changes.
type LeasePolicyHolder struct {
	current atomic.Value // holds LeasePolicy
}

func NewLeasePolicyHolder() (*LeasePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("lease_policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/upkyp/config") // Volume-mounted config
	v.AddConfigPath("/etc/upkyp")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("UPKYP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultLeasePolicy()
		v.SetDefault("lease.depositMonths", defaults.DepositMonths)
		v.SetDefault("lease.advanceMonths", defaults.AdvanceMonths)
		v.SetDefault("lease.rentDueDay", defaults.RentDueDay)
		v.SetDefault("lease.gracePeriodDays", defaults.GracePeriodDays)
		v.SetDefault("lease.penaltyPercent", defaults.PenaltyPercent)
	}

	var policy LeasePolicy
	if err := v.UnmarshalKey("lease", &policy); err != nil {
		return nil, err
	}
	if err := validateLeasePolicy(policy); err != nil {
		return nil, err
	}

	holder := &LeasePolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LeasePolicy
		if err := v.UnmarshalKey("lease", &updated); err != nil {
			log.Printf("[lease-policy] reload failed: %v", err)
			return
		}
		if err := validateLeasePolicy(updated); err != nil {
			log.Printf("[lease-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[lease-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *LeasePolicyHolder) Get() LeasePolicy {
	return h.current.Load().(LeasePolicy)
}

// NewStaticLeasePolicyHolder returns a holder pinned to the given policy.
// Used by tests and by callers that do not want file watching.
func NewStaticLeasePolicyHolder(policy LeasePolicy) *LeasePolicyHolder {
	holder := &LeasePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateLeasePolicy(policy LeasePolicy) error {
	if policy.RentDueDay < 1 || policy.RentDueDay > 28 {
		return errors.New("lease.rentDueDay must be between 1 and 28")
	}
	if policy.GracePeriodDays < 0 {
		return errors.New("lease.gracePeriodDays cannot be negative")
	}
	if policy.DepositMonths < 0 || policy.AdvanceMonths < 0 {
		return errors.New("lease deposit/advance months cannot be negative")
	}
	if policy.PenaltyPercent < 0 {
		return errors.New("lease.penaltyPercent cannot be negative")
	}
	return nil
}
