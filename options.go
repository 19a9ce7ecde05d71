package custodian

import (
	"log/slog"

	"github.com/xraph/custodian/adaptor"
	"github.com/xraph/custodian/event"
	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/plugin"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithRegistry overrides the sharing registry. By default the engine uses
// the composite store's registry; set this when the registry is a remote
// service separate from the local store.
func WithRegistry(r sharing.Registry) Option { return func(e *Engine) { e.registry = r } }

// WithAdaptorFactory sets the SSH adaptor factory used by credential
// resolution. Engines without one can still perform access checks and
// sharing workflows.
func WithAdaptorFactory(f adaptor.Factory) Option { return func(e *Engine) { e.adaptors = f } }

// WithGroupProvisioner sets the provisioner that lazily creates a
// gateway's admin groups on first access.
func WithGroupProvisioner(p group.Provisioner) Option { return func(e *Engine) { e.provisioner = p } }

// WithPublisher sets the resource event publisher. The publisher is an
// optional dependency: without one, no events are emitted.
func WithPublisher(p event.Publisher) Option { return func(e *Engine) { e.publisher = p } }

// WithCache sets the access decision cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
