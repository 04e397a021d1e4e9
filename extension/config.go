package extension

// Config holds the Guardian extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.guardian" or "guardian" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for guardian routes (default: "/guardian").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// MaxRoleDepth controls the maximum depth for role hierarchy traversal.
	MaxRoleDepth int `json:"max_role_depth" mapstructure:"max_role_depth" yaml:"max_role_depth"`

	// SweepIntervalSeconds is how often the background sweep expires
	// overdue emergency grants. Zero keeps the engine default.
	SweepIntervalSeconds int `json:"sweep_interval_seconds" mapstructure:"sweep_interval_seconds" yaml:"sweep_interval_seconds"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRoleDepth: 10,
	}
}
