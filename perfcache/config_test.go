package perfcache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"zero budget", func(c *Config) { c.MemoryBudgetBytes = 0 }, true},
		{"negative budget", func(c *Config) { c.MemoryBudgetBytes = -1 }, true},
		{"missing cache dir", func(c *Config) { c.CacheDir = "" }, true},
		{"negative op timeout", func(c *Config) { c.OpTimeout = -time.Second }, true},
		{"negative cleanup interval", func(c *Config) { c.CleanupInterval = -time.Minute }, true},
		{"empty namespace name", func(c *Config) {
			c.Namespaces = map[string]PolicyConfig{"": {TTL: time.Hour, MaxEntryBytes: 1024}}
		}, true},
		{"zero namespace ttl", func(c *Config) {
			c.Namespaces = map[string]PolicyConfig{"ns": {TTL: 0, MaxEntryBytes: 1024}}
		}, true},
		{"zero namespace cap", func(c *Config) {
			c.Namespaces = map[string]PolicyConfig{"ns": {TTL: time.Hour, MaxEntryBytes: 0}}
		}, true},
		{"disabled skips checks", func(c *Config) {
			c.Enabled = false
			c.MemoryBudgetBytes = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestLargestEntryBytes(t *testing.T) {
	config := DefaultConfig()

	// The built-in policy table tops out at the gemini_responses cap.
	if got := config.LargestEntryBytes(); got != 50*1024*1024 {
		t.Errorf("Expected 50MB from built-in policies, got %d", got)
	}

	config.Namespaces = map[string]PolicyConfig{
		"bulk_exports": {TTL: time.Hour, MaxEntryBytes: 200 * 1024 * 1024},
	}
	if got := config.LargestEntryBytes(); got != 200*1024*1024 {
		t.Errorf("Expected override to raise the largest cap, got %d", got)
	}

	// A smaller override never lowers the result below the built-ins.
	config.Namespaces = map[string]PolicyConfig{
		"tiny": {TTL: time.Hour, MaxEntryBytes: 512},
	}
	if got := config.LargestEntryBytes(); got != 50*1024*1024 {
		t.Errorf("Expected built-in policies to keep the largest cap, got %d", got)
	}
}

func TestConfigJSONDurationStrings(t *testing.T) {
	raw := `{
		"enabled": true,
		"memory_budget_bytes": 52428800,
		"cache_dir": "/var/cache/deckgen",
		"op_timeout": "3s",
		"cleanup_interval": "15m",
		"namespaces": {
			"gemini_responses": {"ttl": "2h", "max_entry_bytes": 1048576}
		}
	}`

	var config Config
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.OpTimeout != 3*time.Second {
		t.Errorf("Expected 3s op timeout, got %v", config.OpTimeout)
	}
	if config.CleanupInterval != 15*time.Minute {
		t.Errorf("Expected 15m cleanup interval, got %v", config.CleanupInterval)
	}
	if got := config.Namespaces["gemini_responses"].TTL; got != 2*time.Hour {
		t.Errorf("Expected 2h namespace ttl, got %v", got)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}

func TestConfigJSONDurationNumbers(t *testing.T) {
	raw := `{"enabled": true, "memory_budget_bytes": 1024, "cache_dir": "/tmp/c", "op_timeout": 5000000000}`

	var config Config
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.OpTimeout != 5*time.Second {
		t.Errorf("Expected 5s op timeout from nanoseconds, got %v", config.OpTimeout)
	}
}

func TestConfigJSONInvalidDuration(t *testing.T) {
	raw := `{"enabled": true, "op_timeout": "soon"}`

	var config Config
	if err := json.Unmarshal([]byte(raw), &config); err == nil {
		t.Error("Expected error for invalid duration string")
	}
}
