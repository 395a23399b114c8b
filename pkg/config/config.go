// pkg/config/config.go
package config

import "time"

// DatabaseConfig describes the embedded SQLite database file.
type DatabaseConfig struct {
	Path        string            `mapstructure:"path"`        // database file, or ":memory:"; checked when the database opens
	Override    bool              `mapstructure:"override"`    // remove an existing file before opening
	ForeignKeys bool              `mapstructure:"foreignKeys"` // enforce FOREIGN KEY constraints
	BusyTimeout time.Duration     `mapstructure:"busyTimeout" validate:"gte=0"`
	Options     map[string]string `mapstructure:"options"` // extra go-sqlite3 DSN parameters
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// SchemaConfig points at the YAML model declarations used by the CLI.
type SchemaConfig struct {
	File string `mapstructure:"file"`
}

// Config aggregates every setting.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Schema   SchemaConfig   `mapstructure:"schema"`
}

// NewDefaultConfig returns a configuration with defaults applied. The database
// path must still be supplied before a database can be opened.
func NewDefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			ForeignKeys: true,
			BusyTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Schema: SchemaConfig{
			File: "models.yaml",
		},
	}
}
