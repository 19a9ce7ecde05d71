package extension

import (
	"log/slog"

	"github.com/xraph/custodian"
	"github.com/xraph/custodian/plugin"
	"github.com/xraph/custodian/store"
)

// ExtOption configures the Custodian Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.custodianOpts = append(e.custodianOpts, custodian.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...custodian.Option) ExtOption {
	return func(e *Extension) {
		e.custodianOpts = append(e.custodianOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithGateways sets the gateway ids provisioned on start.
func WithGateways(gatewayIDs ...string) ExtOption {
	return func(e *Extension) {
		e.config.Gateways = append(e.config.Gateways, gatewayIDs...)
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
