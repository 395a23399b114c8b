// pkg/config/load.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. EDGEMODEL_DATABASE_PATH.
const EnvPrefix = "EDGEMODEL"

// LoadConfig loads configuration from files, environment variables, and defaults.
// configPath: optional path to a specific configuration file.
// If configPath is empty, searches for "edgemodel.yaml" in standard locations.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	cfg := NewDefaultConfig()

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.override", cfg.Database.Override)
	v.SetDefault("database.foreignKeys", cfg.Database.ForeignKeys)
	v.SetDefault("database.busyTimeout", cfg.Database.BusyTimeout)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("schema.file", cfg.Schema.File)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("edgemodel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.edgemodel")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default file is fine; a missing or broken explicit one is not.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" {
			return cfg, fmt.Errorf("error reading specified config file %s: %w", configPath, err)
		}
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error decoding configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		var validationErrors []string
		for _, fe := range fieldErrs {
			validationErrors = append(validationErrors, fmt.Sprintf("Field '%s' failed validation on '%s'", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(validationErrors, "; "))
	}
	return nil
}
