// Package extension provides a Forge extension entry point for Custodian.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/custodian"
	"github.com/xraph/custodian/plugin"
	"github.com/xraph/custodian/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "custodian"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Science gateway access control & credential resolution engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Custodian as a Forge extension.
type Extension struct {
	config        Config
	eng           *custodian.Engine
	logger        *slog.Logger
	custodianOpts []custodian.Option
	plugins       []plugin.Plugin
}

// New creates a Custodian Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying Custodian engine.
func (e *Extension) Engine() *custodian.Engine { return e.eng }

// Register implements [forge.Extension]. It initializes the engine and
// registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*custodian.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("custodian: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Build custodian options.
	opts := make([]custodian.Option, 0, len(e.custodianOpts)+len(e.plugins)+1)
	opts = append(opts, custodian.WithLogger(logger))

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, custodian.WithStore(s))
	}

	// Append user-provided options (may override store).
	opts = append(opts, e.custodianOpts...)

	for _, x := range e.plugins {
		opts = append(opts, custodian.WithPlugin(x))
	}

	eng, err := custodian.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("custodian: create engine: %w", err)
	}
	e.eng = eng

	return nil
}

// Start begins the custodian engine and runs migrations if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("custodian: extension not initialized")
	}

	// Run migrations unless disabled.
	if !e.config.DisableMigrate {
		s := e.eng.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("custodian: migration failed: %w", err)
			}
		}
	}

	// Provision the sharing domain for each configured gateway so access
	// checks and credential resolution work out of the box.
	for _, gatewayID := range e.config.Gateways {
		if err := e.eng.EnsureDomain(ctx, gatewayID); err != nil {
			return fmt.Errorf("custodian: provision gateway %s: %w", gatewayID, err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the custodian engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("custodian: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("custodian: no store configured")
	}
	return s.Ping(ctx)
}
