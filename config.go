package custodian

import "time"

// Config holds configuration for the Custodian engine.
type Config struct {
	// CacheTTL is the time-to-live for cached access decisions.
	// Zero means no caching; access checks are evaluated statelessly
	// per call and concurrent callers may observe registry mutations
	// immediately.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// AuditDecisions writes an audit log entry for every access check.
	AuditDecisions bool `json:"audit_decisions,omitempty"`

	// AutoShareWithAdmins shares newly created resources with the
	// gateway's admin groups. Defaults to true.
	AutoShareWithAdmins *bool `json:"auto_share_with_admins,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		AutoShareWithAdmins: &t,
	}
}

func (c Config) autoShareEnabled() bool {
	return c.AutoShareWithAdmins == nil || *c.AutoShareWithAdmins
}
