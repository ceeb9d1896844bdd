package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// SRSConfig tunes the default memory model. Zero values fall back to the
// model's published defaults.
type SRSConfig struct {
	// DesiredRetention is the recall probability the scheduler targets at
	// the next review, e.g. 0.9.
	DesiredRetention float64 `mapstructure:"desired_retention" validate:"omitempty,gt=0,lt=1"`

	// MaximumIntervalDays caps scheduled review intervals.
	MaximumIntervalDays int `mapstructure:"maximum_interval_days" validate:"omitempty,gte=1"`
}
