// cmd/edgemodel/main.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chmenegatti/edgemodel/pkg/config"
	"github.com/chmenegatti/edgemodel/pkg/edgemodel"
	"github.com/chmenegatti/edgemodel/pkg/schema"
)

// app is the state shared by every subcommand, filled in before any of them
// runs.
type app struct {
	cfgFile    string
	envFile    string
	schemaFile string

	cfg      config.Config
	logger   *slog.Logger
	registry *schema.Registry
	models   []*schema.Model
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "edgemodel",
		Short: "EdgeModel CLI for embedded SQLite schemas and records",
		Long: `The EdgeModel CLI reads model declarations from a YAML file,
creates their tables in an embedded SQLite database, prints the
derived SQL and lists stored records.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "Configuration file (default is ./edgemodel.yaml or $HOME/.edgemodel/edgemodel.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	root.PersistentFlags().StringVarP(&a.schemaFile, "schema", "s", "", "Model declarations file (overrides schema.file)")

	root.AddCommand(newTablesCmd(a), newRecordsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.schemaFile != "" {
		cfg.Schema.File = a.schemaFile
	}
	a.cfg = cfg

	a.logger, err = config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.registry = schema.NewRegistry(nil)
	a.models, err = a.registry.LoadFile(cfg.Schema.File)
	if err != nil {
		return fmt.Errorf("loading model declarations: %w", err)
	}
	a.logger.Debug("declarations loaded", "file", cfg.Schema.File, "models", len(a.models))
	return nil
}

func (a *app) open() (*edgemodel.Database, error) {
	if a.cfg.Database.Path == "" {
		return nil, fmt.Errorf("set database.path or %s_DATABASE_PATH: %w", config.EnvPrefix, edgemodel.ErrEmptyPath)
	}
	return edgemodel.OpenConfig(a.cfg,
		edgemodel.WithLogger(a.logger),
		edgemodel.WithRegistry(a.registry),
	)
}

// selectModels returns the named models, or every declared model in file
// order when names is empty.
func (a *app) selectModels(names []string) ([]*schema.Model, error) {
	if len(names) == 0 {
		return a.models, nil
	}
	out := make([]*schema.Model, 0, len(names))
	for _, name := range names {
		m, err := a.registry.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: '%s'\n", err)
		os.Exit(1)
	}
}
