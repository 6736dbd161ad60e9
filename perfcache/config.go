package perfcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tushar1003/deckgen/errors"
)

// Config configures a Cache instance.
type Config struct {
	// Enabled toggles caching entirely. When false, every operation is a
	// no-op: Get always misses, Set reports success without storing.
	Enabled bool `json:"enabled"`

	// MemoryBudgetBytes is the global byte budget of the memory tier.
	MemoryBudgetBytes int64 `json:"memory_budget_bytes"`

	// CacheDir is the directory of the persistent tier. Created if absent.
	CacheDir string `json:"cache_dir"`

	// OpTimeout bounds each shared-tier operation.
	OpTimeout time.Duration `json:"op_timeout"`

	// CleanupInterval is the period of the background expired-entry sweep.
	// Zero disables the sweep.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// Namespaces overrides the built-in policy table per namespace.
	Namespaces map[string]PolicyConfig `json:"namespaces,omitempty"`
}

// PolicyConfig is the serializable form of a namespace policy.
type PolicyConfig struct {
	TTL           time.Duration `json:"ttl"`
	MaxEntryBytes int64         `json:"max_entry_bytes"`
}

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MemoryBudgetBytes: 100 * 1024 * 1024,
		CacheDir:          filepath.Join(os.TempDir(), "deckgen_cache"),
		OpTimeout:         5 * time.Second,
		CleanupInterval:   10 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MemoryBudgetBytes <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "perfcache", "Validate",
			"memory budget must be positive")
	}
	if c.CacheDir == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "perfcache", "Validate",
			"cache directory is required")
	}
	if c.OpTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "perfcache", "Validate",
			"operation timeout cannot be negative")
	}
	if c.CleanupInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "perfcache", "Validate",
			"cleanup interval cannot be negative")
	}
	for namespace, policy := range c.Namespaces {
		if namespace == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "perfcache", "Validate",
				"namespace name cannot be empty")
		}
		if policy.TTL <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "perfcache", "Validate",
				fmt.Sprintf("namespace %q: ttl must be positive", namespace))
		}
		if policy.MaxEntryBytes <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "perfcache", "Validate",
				fmt.Sprintf("namespace %q: max entry bytes must be positive", namespace))
		}
	}
	return nil
}

// policies converts the configured namespace overrides into Policy values.
func (c *Config) policies() map[string]Policy {
	if len(c.Namespaces) == 0 {
		return nil
	}
	overrides := make(map[string]Policy, len(c.Namespaces))
	for namespace, policy := range c.Namespaces {
		overrides[namespace] = Policy{
			DefaultTTL:    policy.TTL,
			MaxEntryBytes: policy.MaxEntryBytes,
		}
	}
	return overrides
}

// LargestEntryBytes returns the biggest per-entry size any namespace policy
// admits, taking configured overrides into account. Shared-tier buckets must
// be provisioned with at least this value size or writes in the larger
// namespaces can never succeed.
func (c *Config) LargestEntryBytes() int64 {
	effective := DefaultPolicies()
	for namespace, policy := range c.policies() {
		effective[namespace] = policy
	}

	largest := fallbackPolicy.MaxEntryBytes
	for _, policy := range effective {
		if policy.MaxEntryBytes > largest {
			largest = policy.MaxEntryBytes
		}
	}
	return largest
}

// UnmarshalJSON accepts duration fields as Go duration strings ("5s", "10m")
// in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		OpTimeout       any `json:"op_timeout"`
		CleanupInterval any `json:"cleanup_interval"`
		*Alias
	}{Alias: (*Alias)(c)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var err error
	if c.OpTimeout, err = parseDurationField(aux.OpTimeout, "op_timeout"); err != nil {
		return err
	}
	if c.CleanupInterval, err = parseDurationField(aux.CleanupInterval, "cleanup_interval"); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON accepts the ttl field as a Go duration string in addition to
// a nanosecond integer.
func (p *PolicyConfig) UnmarshalJSON(data []byte) error {
	type Alias PolicyConfig
	aux := &struct {
		TTL any `json:"ttl"`
		*Alias
	}{Alias: (*Alias)(p)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var err error
	p.TTL, err = parseDurationField(aux.TTL, "ttl")
	return err
}

func parseDurationField(value any, field string) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", field, err)
		}
		return d, nil
	case float64:
		return time.Duration(v), nil
	default:
		return 0, fmt.Errorf("invalid type for %s: expected duration string or number", field)
	}
}
