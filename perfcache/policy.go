package perfcache

import (
	"time"
)

// Policy defines the caching policy for a namespace.
type Policy struct {
	// DefaultTTL applies to Set calls that do not specify a TTL.
	DefaultTTL time.Duration

	// MaxEntryBytes caps the serialized size of a single entry accepted by
	// the memory tier. Larger values are still written through to the
	// slower tiers.
	MaxEntryBytes int64
}

// fallbackPolicy applies to namespaces without an explicit policy.
var fallbackPolicy = Policy{
	DefaultTTL:    time.Hour,
	MaxEntryBytes: 10 * 1024 * 1024,
}

// DefaultPolicies returns the policy table for the production namespaces.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"gemini_responses":      {DefaultTTL: time.Hour, MaxEntryBytes: 50 * 1024 * 1024},
		"template_data":         {DefaultTTL: 24 * time.Hour, MaxEntryBytes: 10 * 1024 * 1024},
		"presentation_metadata": {DefaultTTL: 2 * time.Hour, MaxEntryBytes: 5 * 1024 * 1024},
		"user_preferences":      {DefaultTTL: time.Hour, MaxEntryBytes: 1024 * 1024},
		"font_validation":       {DefaultTTL: 24 * time.Hour, MaxEntryBytes: 1024 * 1024},
	}
}

// PolicyRegistry maps namespaces to their policies. The registry is built
// once at cache construction and read-only afterwards.
type PolicyRegistry struct {
	policies map[string]Policy
	fallback Policy
}

// NewPolicyRegistry creates a registry seeded with DefaultPolicies, with
// overrides layered on top. A nil overrides map yields the defaults.
func NewPolicyRegistry(overrides map[string]Policy) *PolicyRegistry {
	policies := DefaultPolicies()
	for namespace, policy := range overrides {
		policies[namespace] = policy
	}
	return &PolicyRegistry{
		policies: policies,
		fallback: fallbackPolicy,
	}
}

// Lookup returns the policy for a namespace, falling back to the global
// default policy for unknown namespaces.
func (r *PolicyRegistry) Lookup(namespace string) Policy {
	if policy, ok := r.policies[namespace]; ok {
		return policy
	}
	return r.fallback
}
