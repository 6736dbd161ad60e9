package perfcache

import (
	"testing"
	"time"
)

func TestPolicyRegistryDefaults(t *testing.T) {
	registry := NewPolicyRegistry(nil)

	policy := registry.Lookup("gemini_responses")
	if policy.DefaultTTL != time.Hour {
		t.Errorf("Expected 1h TTL for gemini_responses, got %v", policy.DefaultTTL)
	}
	if policy.MaxEntryBytes != 50*1024*1024 {
		t.Errorf("Expected 50MB cap for gemini_responses, got %d", policy.MaxEntryBytes)
	}

	policy = registry.Lookup("template_data")
	if policy.DefaultTTL != 24*time.Hour {
		t.Errorf("Expected 24h TTL for template_data, got %v", policy.DefaultTTL)
	}
}

func TestPolicyRegistryFallback(t *testing.T) {
	registry := NewPolicyRegistry(nil)

	policy := registry.Lookup("unknown_namespace")
	if policy.DefaultTTL != time.Hour || policy.MaxEntryBytes != 10*1024*1024 {
		t.Errorf("Expected fallback policy 1h/10MB, got %v/%d",
			policy.DefaultTTL, policy.MaxEntryBytes)
	}
}

func TestPolicyRegistryOverrides(t *testing.T) {
	registry := NewPolicyRegistry(map[string]Policy{
		"gemini_responses": {DefaultTTL: 30 * time.Minute, MaxEntryBytes: 1024},
		"custom_ns":        {DefaultTTL: time.Minute, MaxEntryBytes: 256},
	})

	if policy := registry.Lookup("gemini_responses"); policy.DefaultTTL != 30*time.Minute {
		t.Errorf("Expected override to win, got %v", policy.DefaultTTL)
	}
	if policy := registry.Lookup("custom_ns"); policy.MaxEntryBytes != 256 {
		t.Errorf("Expected custom namespace policy, got %d", policy.MaxEntryBytes)
	}
	// Untouched namespaces keep their defaults.
	if policy := registry.Lookup("template_data"); policy.DefaultTTL != 24*time.Hour {
		t.Errorf("Expected default to survive overrides, got %v", policy.DefaultTTL)
	}
}
