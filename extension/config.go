package extension

// Config holds the Custodian extension configuration.
// Fields can be set programmatically via Option functions or bound from the
// host application's configuration files via the struct tags.
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Gateways lists gateway ids whose sharing domains are provisioned on
	// start. Gateways not listed here are provisioned lazily on first use.
	Gateways []string `json:"gateways" mapstructure:"gateways" yaml:"gateways"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
