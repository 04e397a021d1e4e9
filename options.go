package guardian

import (
	"log/slog"
	"time"

	"github.com/medplane/guardian/plugin"
	"github.com/medplane/guardian/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithEvaluator sets the policy constraint evaluator.
func WithEvaluator(ev ConstraintEvaluator) Option { return func(e *Engine) { e.evaluator = ev } }

// WithCache sets the authorization result cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithClock sets the engine clock. Used by tests to pin evaluation time.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithDepartmentResolver sets the collaborator that maps a user to the
// departments they are primarily attached to. Without one, departments are
// derived from the user's held roles.
func WithDepartmentResolver(r DepartmentResolver) Option {
	return func(e *Engine) { e.departments = r }
}

// WithPlugin registers a plugin with the engine.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(p)
	}
}
