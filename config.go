package guardian

import "time"

// Config holds configuration for the guardian engine.
type Config struct {
	// MaxRoleDepth is the maximum depth for role hierarchy traversal.
	// Defaults to 10.
	MaxRoleDepth int `json:"max_role_depth,omitempty"`

	// SyntheticPolicyPriority is the priority assigned to the transient
	// Allow policies backing emergency grants. It should exceed any
	// admin-authored Allow priority. Defaults to 1000.
	SyntheticPolicyPriority int `json:"synthetic_policy_priority,omitempty"`

	// SweepInterval is how often the background sweep transitions
	// overdue emergency grants to Expired. Zero disables the sweep;
	// expiry is still enforced lazily at evaluation time.
	// Defaults to one minute.
	SweepInterval time.Duration `json:"sweep_interval,omitempty"`

	// CacheTTL is the time-to-live for cached authorization results.
	// Only meaningful when a cache is configured.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRoleDepth:            10,
		SyntheticPolicyPriority: 1000,
		SweepInterval:           time.Minute,
	}
}
